package config

// Default configuration values.
const (
	DefaultConfigFile  = "relsplit.yaml"
	DefaultEncoding    = "utf-8"
	DefaultSplitObject = "object"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// Parameter names offered to path and header/footer templates.
const (
	ParamBase       = "base"
	ParamDagFolder  = "dag_folder"
	ParamSchema     = "schema"
	ParamObjectName = "object_name"
	ParamObjectType = "object_type"
	// ParamSeq is the 1-based number of the block within its release file.
	ParamSeq = "seq"
)

// DefaultDangerWords are the DDL/DML keywords flagged for review when they
// appear in a block.
var DefaultDangerWords = []string{"drop", "alter", "truncate", "delete", "exchange", "analyze", "vacuum"}

// ApplyDefaults applies default values to a ReleaseConfig.
func ApplyDefaults(c *ReleaseConfig) {
	if c == nil {
		return
	}
	if c.Options.Encoding == "" {
		c.Options.Encoding = DefaultEncoding
	}
	if c.Options.DangerWords == nil {
		c.Options.DangerWords = append([]string(nil), DefaultDangerWords...)
	}
}

// ApplyLoggingDefaults applies default values to a LoggingConfig.
func ApplyLoggingDefaults(c *LoggingConfig) {
	if c == nil {
		return
	}
	if c.Level == "" {
		c.Level = DefaultLogLevel
	}
	if c.Format == "" {
		c.Format = DefaultLogFormat
	}
}
