package atv

import "strings"

// CommonApps maps lowercase app nicknames to a launch target: either a URL
// or an Android package name. Do not modify.
var CommonApps = map[string]string{
	"appletv":      "https://tv.apple.com",
	"youtube":      "https://www.youtube.com",
	"netflix":      "com.netflix.ninja",
	"disney+":      "com.disney.disneyplus",
	"amazon prime": "com.amazon.amazonvideo.livingroom",
	"kodi":         "org.xbmc.kodi",
	"hulu":         "com.hulu.livingroomplus",
	"max":          "com.maxtvplus.yorchapps",
	"spotify":      "com.spotify.tv.android",
	"pluto":        "tv.pluto.android",
}

// ResolveApp looks up a nickname, ignoring case and surrounding whitespace.
func ResolveApp(name string) (string, bool) {
	target, ok := CommonApps[strings.ToLower(strings.TrimSpace(name))]
	return target, ok
}
