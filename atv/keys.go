package atv

import "strings"

// Android key code names accepted by SendKey.
const (
	KeyPower    = "KEYCODE_POWER"
	KeyHome     = "KEYCODE_HOME"
	KeyBack     = "KEYCODE_BACK"
	KeyMenu     = "KEYCODE_MENU"
	KeySettings = "KEYCODE_SETTINGS"

	KeyUp     = "KEYCODE_DPAD_UP"
	KeyDown   = "KEYCODE_DPAD_DOWN"
	KeyLeft   = "KEYCODE_DPAD_LEFT"
	KeyRight  = "KEYCODE_DPAD_RIGHT"
	KeyCenter = "KEYCODE_DPAD_CENTER"
	KeyOK     = KeyCenter

	KeyVolumeUp   = "KEYCODE_VOLUME_UP"
	KeyVolumeDown = "KEYCODE_VOLUME_DOWN"
	KeyMute       = "KEYCODE_MUTE"

	KeyPlayPause   = "KEYCODE_MEDIA_PLAY_PAUSE"
	KeyPlay        = "KEYCODE_MEDIA_PLAY"
	KeyPause       = "KEYCODE_MEDIA_PAUSE"
	KeyStop        = "KEYCODE_MEDIA_STOP"
	KeyNext        = "KEYCODE_MEDIA_NEXT"
	KeyPrevious    = "KEYCODE_MEDIA_PREVIOUS"
	KeyFastForward = "KEYCODE_MEDIA_FAST_FORWARD"
	KeyRewind      = "KEYCODE_MEDIA_REWIND"

	Key0 = "KEYCODE_0"
	Key1 = "KEYCODE_1"
	Key2 = "KEYCODE_2"
	Key3 = "KEYCODE_3"
	Key4 = "KEYCODE_4"
	Key5 = "KEYCODE_5"
	Key6 = "KEYCODE_6"
	Key7 = "KEYCODE_7"
	Key8 = "KEYCODE_8"
	Key9 = "KEYCODE_9"

	KeyTVInput     = "KEYCODE_TV_INPUT"
	KeyChannelUp   = "KEYCODE_CHANNEL_UP"
	KeyChannelDown = "KEYCODE_CHANNEL_DOWN"
	KeyGuide       = "KEYCODE_GUIDE"
	KeyInfo        = "KEYCODE_INFO"
	KeyDel         = "KEYCODE_DEL"
)

const keyCodePrefix = "KEYCODE_"

// KeyMapping translates key code names to the library's short command names.
// Do not modify.
var KeyMapping = map[string]string{
	KeyPower:      "POWER",
	KeyHome:       "HOME",
	KeyBack:       "BACK",
	KeyVolumeUp:   "VOLUME_UP",
	KeyVolumeDown: "VOLUME_DOWN",
	KeyCenter:     "DPAD_CENTER",
	KeyUp:         "DPAD_UP",
	KeyDown:       "DPAD_DOWN",
	KeyLeft:       "DPAD_LEFT",
	KeyRight:      "DPAD_RIGHT",
	KeyMenu:       "MENU",
	KeyMute:       "MUTE",
}

// Command returns the library command for a key code. Unmapped codes have the
// KEYCODE_ prefix removed and are otherwise passed through unchanged.
func Command(code string) string {
	if cmd, ok := KeyMapping[code]; ok {
		return cmd
	}
	return strings.ReplaceAll(code, keyCodePrefix, "")
}
