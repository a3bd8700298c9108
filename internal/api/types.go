package api

// SamplesRequest asks for NumSamples continuations of Priming, each Length
// characters past the prefix. A missing priming picks one random character.
type SamplesRequest struct {
	Priming     *string  `json:"priming,omitempty"`
	Length      *int     `json:"length,omitempty"`
	NumSamples  *int     `json:"num_samples,omitempty"`
	Seed        *int64   `json:"seed,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Greedy      bool     `json:"greedy,omitempty"`
}

type SamplesResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Priming *string  `json:"priming,omitempty"`
	Length  int      `json:"length"`
	Seed    int64    `json:"seed"`
	Samples []string `json:"samples"`
}

type VocabularyResponse struct {
	Object     string   `json:"object"`
	Size       int      `json:"size"`
	Characters []string `json:"characters"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Stream message types sent over the WebSocket endpoint.
const (
	StreamTypeStep  = "step"
	StreamTypeDone  = "done"
	StreamTypeError = "error"
)

// StreamMessage is one WebSocket frame. Step frames carry the characters
// chosen at Step, one per sample; the done frame carries the full response.
type StreamMessage struct {
	Type     string           `json:"type"`
	Step     int              `json:"step,omitempty"`
	Chars    []string         `json:"chars,omitempty"`
	Response *SamplesResponse `json:"response,omitempty"`
	Error    *ResponseError   `json:"error,omitempty"`
}
