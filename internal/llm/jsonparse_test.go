package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type parsedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseJSON_BareObject(t *testing.T) {
	got, err := ParseJSON[parsedThing](`{"name":"widget","count":3}`)
	require.NoError(t, err)
	assert.Equal(t, parsedThing{Name: "widget", Count: 3}, got)
}

func TestParseJSON_FencedBlockWithProse(t *testing.T) {
	text := "Sure, here's the result:\n```json\n{\"name\":\"widget\",\"count\":3}\n```\nHope that helps!"
	got, err := ParseJSON[parsedThing](text)
	require.NoError(t, err)
	assert.Equal(t, parsedThing{Name: "widget", Count: 3}, got)
}

func TestParseJSON_BareFenceNoLanguageTag(t *testing.T) {
	text := "```\n{\"name\":\"widget\",\"count\":3}\n```"
	got, err := ParseJSON[parsedThing](text)
	require.NoError(t, err)
	assert.Equal(t, parsedThing{Name: "widget", Count: 3}, got)
}

func TestParseJSON_TrailingProseWithoutFence(t *testing.T) {
	text := `{"name":"widget","count":3} — let me know if you need anything else.`
	got, err := ParseJSON[parsedThing](text)
	require.NoError(t, err)
	assert.Equal(t, parsedThing{Name: "widget", Count: 3}, got)
}

func TestParseJSON_IgnoresBracesInsideStrings(t *testing.T) {
	text := `{"name":"a } b { c","count":7}`
	got, err := ParseJSON[parsedThing](text)
	require.NoError(t, err)
	assert.Equal(t, "a } b { c", got.Name)
	assert.Equal(t, 7, got.Count)
}

func TestParseJSON_Array(t *testing.T) {
	got, err := ParseJSON[[]int]("prefix text\n[1, 2, 3]\nsuffix text")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestParseJSON_NoJSONFound(t *testing.T) {
	_, err := ParseJSON[parsedThing]("I'm not sure how to answer that.")
	require.Error(t, err)
}

func TestParseJSON_MalformedJSON(t *testing.T) {
	_, err := ParseJSON[parsedThing](`{"name": "widget", "count": }`)
	require.Error(t, err)
}
