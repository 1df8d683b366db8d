package domain

import "time"

// AssetKind enumerates asset types.
type AssetKind string

const (
	AssetKindOriginal  AssetKind = "original"
	AssetKindGenerated AssetKind = "generated"
)

// ImageAsset is one stored image file. Rows are never updated after insert.
type ImageAsset struct {
	ID        string
	SessionID string
	Kind      AssetKind
	Path      string
	URL       string
	Metadata  AssetMetadata
	CreatedAt time.Time
}

// AssetMetadata is the free-form descriptor persisted next to an asset.
type AssetMetadata struct {
	MIME     string `json:"mime,omitempty"`
	Checksum string `json:"sha256,omitempty"`
	Bytes    int64  `json:"bytes,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Model    string `json:"model,omitempty"`
	JobID    string `json:"job_id,omitempty"`
}
