package audio

import "strings"

const WAVHeaderSize = 44

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether a source is a Bluetooth
// headset. Those usually drop to a narrowband profile while the mic is open.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

// Format describes interleaved signed 16-bit little-endian PCM.
type Format struct {
	SampleRate uint32
	Channels   uint32
}

func (f Format) BytesPerSecond() int {
	return int(f.SampleRate) * int(f.Channels) * 2
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, format Format) (CaptureDevice, error)
	NewPlayback(format Format) (PlaybackDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// PlaybackDevice plays one PCM buffer at a time. Play returns once the
// stream is running; Done is closed when the buffer has drained or Stop
// was called.
type PlaybackDevice interface {
	Play(pcm []byte) error
	Stop()
	Done() <-chan struct{}
	Close()
}
