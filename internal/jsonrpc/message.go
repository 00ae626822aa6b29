// Package jsonrpc implements the JSON-RPC 2.0 message multiplexer described
// in §4.2: request/response correlation, notification delivery, per-request
// timeouts, and cooperative cancellation, independent of the transport that
// carries the bytes.
package jsonrpc

import "encoding/json"

const version = "2.0"

// Message is a decoded JSON-RPC 2.0 envelope. Exactly one of the
// request/notification/response shapes applies, per §3's invariants:
// a request has Method and a non-nil ID; a notification has Method and a
// nil ID; a response has a non-nil ID and exactly one of Result/Error.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *ID             `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// ID is a JSON-RPC id: either a string or an integer on the wire. Bellwether
// always emits integer ids (monotonically increasing) but must decode
// whatever a server echoes back.
type ID struct {
	Num int64
	Str string
	isStr bool
}

// NewIntID constructs an integer ID.
func NewIntID(n int64) *ID { return &ID{Num: n} }

// Equal reports whether two ids refer to the same request.
func (i *ID) Equal(o *ID) bool {
	if i == nil || o == nil {
		return i == o
	}
	if i.isStr != o.isStr {
		return false
	}
	if i.isStr {
		return i.Str == o.Str
	}
	return i.Num == o.Num
}

func (i *ID) String() string {
	if i == nil {
		return "<nil>"
	}
	if i.isStr {
		return i.Str
	}
	return jsonInt(i.Num)
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

// MarshalJSON implements json.Marshaler.
func (i *ID) MarshalJSON() ([]byte, error) {
	if i == nil {
		return []byte("null"), nil
	}
	if i.isStr {
		return json.Marshal(i.Str)
	}
	return json.Marshal(i.Num)
}

// UnmarshalJSON implements json.Unmarshaler, accepting either a JSON number
// or a JSON string as the id (servers may echo either).
func (i *ID) UnmarshalJSON(data []byte) error {
	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		i.Num = num
		i.isStr = false
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		i.Str = str
		i.isStr = true
		return nil
	}
	return json.Unmarshal(data, &i.Num) // surface the original error shape
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// NewRequest builds a request Message.
func NewRequest(id *ID, method string, params any) (Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return Message{}, err
	}
	return Message{JSONRPC: version, ID: id, Method: method, Params: raw}, nil
}

// NewNotification builds a notification Message (nil id).
func NewNotification(method string, params any) (Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return Message{}, err
	}
	return Message{JSONRPC: version, Method: method, Params: raw}, nil
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	return json.Marshal(params)
}

// IsRequest reports whether m is a request (has a method and an id).
func (m Message) IsRequest() bool { return m.Method != "" && m.ID != nil }

// IsNotification reports whether m is a notification (method, no id).
func (m Message) IsNotification() bool { return m.Method != "" && m.ID == nil }

// IsResponse reports whether m is a response (id, no method).
func (m Message) IsResponse() bool { return m.Method == "" && m.ID != nil }
