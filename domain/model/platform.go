package model

// Platform identifies an external social platform a user can connect.
type Platform string

const (
	PlatformTwitter  Platform = "twitter"
	PlatformFacebook Platform = "facebook"
	PlatformLinkedIn Platform = "linkedin"
	PlatformTikTok   Platform = "tiktok"
	PlatformYouTube  Platform = "youtube"
)

// SupportedPlatforms lists every platform the connection subsystem knows about.
var SupportedPlatforms = []Platform{
	PlatformTwitter,
	PlatformFacebook,
	PlatformLinkedIn,
	PlatformTikTok,
	PlatformYouTube,
}

func (p Platform) String() string { return string(p) }

// IsValid reports whether p is one of the supported platforms.
func (p Platform) IsValid() bool {
	for _, s := range SupportedPlatforms {
		if p == s {
			return true
		}
	}
	return false
}

// ParsePlatform normalizes a platform string coming from a route parameter or
// callback query. Returns ok=false for anything unknown.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(s)
	if p.IsValid() {
		return p, true
	}
	return "", false
}
