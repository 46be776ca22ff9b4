package models

import "time"

// ParamSource says where an extracted keyword parameter comes from.
type ParamSource string

const (
	ParamSourceFixed   ParamSource = "fixed"
	ParamSourceMessage ParamSource = "message"
)

// KeywordConfig binds a keyword to a single endpoint call and a response template.
type KeywordConfig struct {
	ID               string            `json:"id"                          validate:"required"`
	CompanyID        string            `json:"company_id"                  validate:"required"`
	SourceConfigID   string            `json:"source_config_id"            validate:"required"`
	Keyword          string            `json:"keyword"                     validate:"required"`
	EndpointID       string            `json:"endpoint_id"                 validate:"required"`
	Priority         int               `json:"priority"`
	Active           bool              `json:"active"`
	Description      string            `json:"description,omitempty"`
	ResponseTemplate string            `json:"response_template,omitempty"`
	ExtractParams    bool              `json:"extract_params"`
	Params           []ParamExtraction `json:"params,omitempty"            validate:"dive"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ParamExtraction configures one endpoint parameter filled from the message or a constant.
type ParamExtraction struct {
	Name       string      `json:"name"                  validate:"required"`
	From       ParamSource `json:"from"                  validate:"required,oneof=fixed message"`
	FixedValue string      `json:"fixed_value,omitempty"`
	Pattern    string      `json:"pattern,omitempty"`
}
