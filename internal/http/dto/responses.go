package dto

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type TokenResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

type QualityCodeResponse struct {
	QualityCode string `json:"quality_code"`
}
