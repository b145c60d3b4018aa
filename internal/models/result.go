package models

type PortfolioResponse struct {
	Suggestion string `json:"suggestion"`
}

type AudioResponse struct {
	ASRText    string `json:"asr_text"`
	Suggestion string `json:"suggestion"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
