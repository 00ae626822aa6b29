// Package workflow implements §4.9's workflow executor and auto-generator:
// sequential multi-step tool call sequences with data flowing from one
// step's result into a later step's arguments.
//
// # Workflow definition
//
// A workflow is a named sequence of steps, each calling one tool:
//
//	name: create-then-update-user
//	steps:
//	  - id: create
//	    tool: create_user
//	    args:
//	      name: "a"
//	  - id: update
//	    tool: update_user
//	    argMapping:
//	      user_id: "$steps[0].result.id"
//	    optional: false
//
// Each step's argMapping entries are resolved against prior steps'
// stored results before the tool is called; see Executor.Execute. A step
// not marked optional halts the workflow on failure and records
// FailedStepIndex; an optional step's failure is recorded in its
// StepResult but execution continues.
//
// # Auto-generation
//
// Generate pairs each subject's create tool with its update, get and
// delete tools, matching tools by name prefix only, to produce discovered
// workflow definitions without any user authoring, for servers that
// expose conventional CRUD tool naming. Tool descriptions are not
// consulted, and list tools are recognized but never paired.
package workflow
