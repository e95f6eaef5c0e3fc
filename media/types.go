// media/types.go
package media

type AssetType string

const (
	AssetTypeOriginal AssetType = "original" // working file after ingest
	AssetTypeArchive  AssetType = "archive"  // untouched copy taken before publish
	AssetTypeWeb      AssetType = "web"
	AssetTypeThumb    AssetType = "thumb"
	AssetTypeDesktop  AssetType = "desktop"
	AssetTypeRejected AssetType = "rejected"
)

// RenderTargets are the three files a render writes.
type RenderTargets struct {
	Web     string
	Thumb   string
	Desktop string
}

// RenderOptions controls output sizes and the watermark text.
type RenderOptions struct {
	WebMaxSize     int
	ThumbMaxSize   int
	DesktopMaxSize int
	Quality        int
	Watermark      string
}
