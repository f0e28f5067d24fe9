package logger

const (
	FieldError     = "error"
	FieldStatus    = "status"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldDuration  = "duration"
	FieldRequestID = "request_id"
	FieldRemote    = "remote_addr"

	FieldAttempt = "attempt"
	FieldDelay   = "delay"
	FieldBytes   = "bytes"

	FieldRichMenuID  = "rich_menu_id"
	FieldAliasID     = "alias_id"
	FieldUserID      = "user_id"
	FieldUserCount   = "user_count"
	FieldName        = "name"
	FieldContentType = "content_type"
	FieldTemplate    = "template"
)
