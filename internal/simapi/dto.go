package simapi

// TypeRequest is the body of POST /keys/type.
type TypeRequest struct {
	Text string `json:"text"`
}

// TapRequest is the body of POST /keys/tap. Key, when set, names the code
// (see keyNames) and overrides Code.
type TapRequest struct {
	Key       string `json:"key,omitempty"`
	Code      uint8  `json:"code,omitempty"`
	Modifiers uint8  `json:"modifiers,omitempty"`
	Ctrl      bool   `json:"ctrl,omitempty"`
}

// PasskeyRequest is the body of POST /passkey. Zero clears the prompt.
type PasskeyRequest struct {
	Passkey uint32 `json:"passkey"`
}

// SentResponse reports how many key taps were queued.
type SentResponse struct {
	Sent int `json:"sent"`
}
