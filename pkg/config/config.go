package config

// NOTE: sizes are what the album app expects from a native capture
const (
	// screenshot
	ImageWidth   = 1280
	ImageHeight  = 720
	ImageQuality = 80

	// embedded thumbnail
	ThumbWidth   = 320
	ThumbHeight  = 180
	ThumbQuality = 40
	// piexif refuses anything bigger, the APP1 segment has to fit in 64k anyway
	ThumbMaxSize = 64000

	// exif
	Vendor         = "Nintendo co., ltd"
	DateTimeFormat = "2006:01:02 15:04:05"

	// home menu
	DefaultTitleID = "0100000000001000"
	// -d flag, YYYYMMDDHHMMSS
	DateArgFormat = "20060102150405"

	// output
	PathAlbumRoot   = "Nintendo/Album"
	MaxSequence     = 99
	SequenceMaxBack = 24 * 60 * 60 // seconds the sequencer may step back before giving up

	// secrets, hex encoded
	EnvHMACSecret = "ALBUMSIGN_HMAC_SECRET"
	EnvCaptureKey = "ALBUMSIGN_CAPTURE_KEY"
)
