package apiclient

import (
	"github.com/angeloszaimis/docprobe/internal/probe"
)

// Document is one entry returned by the list endpoint. ID is null for files
// that were stored without one.
type Document struct {
	ID        *string `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Size      int64   `json:"size" yaml:"size"`
	Extension string  `json:"extension" yaml:"extension"`
}

type UploadResult struct {
	Success        bool           `json:"success" yaml:"success"`
	Error          string         `json:"error,omitempty" yaml:"error,omitempty"`
	FileID         string         `json:"file_id,omitempty" yaml:"file_id,omitempty"`
	FileName       string         `json:"file_name,omitempty" yaml:"file_name,omitempty"`
	FileType       string         `json:"file_type,omitempty" yaml:"file_type,omitempty"`
	FileSize       int64          `json:"file_size,omitempty" yaml:"file_size,omitempty"`
	Message        string         `json:"message,omitempty" yaml:"message,omitempty"`
	ExtractedText  string         `json:"extracted_text,omitempty" yaml:"extracted_text,omitempty"`
	JSONResult     map[string]any `json:"json_result,omitempty" yaml:"json_result,omitempty"`
	ProcessingTime float64        `json:"processing_time,omitempty" yaml:"processing_time,omitempty"`
}

type ListResult struct {
	Success bool       `json:"success" yaml:"success"`
	Files   []Document `json:"files,omitempty" yaml:"files,omitempty"`
	Error   string     `json:"error,omitempty" yaml:"error,omitempty"`
}

type DeleteResult struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Info reports how the client is configured and whether it can reach the
// backend.
type Info struct {
	BaseURL        string           `json:"baseURL" yaml:"baseURL"`
	APIURL         string           `json:"apiURL" yaml:"apiURL"`
	DocumentsURL   string           `json:"documentsURL" yaml:"documentsURL"`
	Environment    string           `json:"environment" yaml:"environment"`
	BackendURL     string           `json:"backendUrl" yaml:"backendUrl"`
	Runtime        string           `json:"runtime" yaml:"runtime"`
	ConnectionTest probe.Diagnostic `json:"connectionTest" yaml:"connectionTest"`
}

type InfoResult struct {
	Success bool `json:"success" yaml:"success"`
	Info    Info `json:"info" yaml:"info"`
}
