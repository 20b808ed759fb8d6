package config

// Config holds pagemark configuration.
// Stored at: ./config.yaml or ~/.pagemark/config.yaml
type Config struct {
	Render RenderCfg         `mapstructure:"render" yaml:"render"`
	Export ExportCfg         `mapstructure:"export" yaml:"export"`
	OCR    OCRCfg            `mapstructure:"ocr" yaml:"ocr"`
	Labels []string          `mapstructure:"labels" yaml:"labels"` // Allowed option labels
	Meta   map[string]string `mapstructure:"meta" yaml:"meta"`     // Default document metadata
}

// RenderCfg configures the coordinate space masks are annotated in.
type RenderCfg struct {
	// DPI is the resolution pages are rasterized at during annotation.
	// Mask coordinates in the sidecar file live in this pixel space.
	DPI int `mapstructure:"dpi" yaml:"dpi"`
	// PagesDir is the directory holding pre-rendered page rasters,
	// one per source document stem: <pages_dir>/<stem>/page-<n>.png
	PagesDir string `mapstructure:"pages_dir" yaml:"pages_dir"`
}

// ExportCfg configures export output.
type ExportCfg struct {
	DPI    int    `mapstructure:"dpi" yaml:"dpi"`         // Export resolution
	OutDir string `mapstructure:"out_dir" yaml:"out_dir"` // Root output directory ("" = home output dir)
}

// OCRCfg configures the option-label recognizer.
type OCRCfg struct {
	Backend string     `mapstructure:"backend" yaml:"backend"` // "tesseract" or "mistral"
	Mistral MistralCfg `mapstructure:"mistral" yaml:"mistral"`
}

// MistralCfg configures the Mistral OCR backend.
type MistralCfg struct {
	APIKey         string `mapstructure:"api_key" yaml:"api_key"` // Supports ${ENV_VAR} syntax
	Model          string `mapstructure:"model" yaml:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderCfg{
			DPI:      300,
			PagesDir: "",
		},
		Export: ExportCfg{
			DPI: 300,
		},
		OCR: OCRCfg{
			Backend: "tesseract",
			Mistral: MistralCfg{
				APIKey:         "${MISTRAL_API_KEY}",
				Model:          "mistral-ocr-latest",
				TimeoutSeconds: 120,
				MaxRetries:     3,
			},
		},
		Labels: []string{"A", "B", "C", "D", "E"},
	}
}
