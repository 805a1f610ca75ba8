package model

import "time"

// Asset storage locations. Existence is the filesystem itself; there is no
// metadata row backing an asset.
const (
	AssetLocationTemporary = "temporary"
	AssetLocationPermanent = "permanent"
)

type Asset struct {
	Filename  string
	URL       string
	Size      int64
	MimeType  string
	Location  string
	CreatedAt time.Time
}
