package player

import (
	"errors"
	"fmt"
	"sync"

	"github.com/asticode/go-astiav"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"
)

var speakerOnce sync.Once

// AudioPlayer decodes the media's audio stream and plays it through the
// speaker. It is a fire-and-forget side channel: beyond started/failed the
// video pipeline gets no feedback from it and never waits on it.
type AudioPlayer struct {
	codecCtx *astiav.CodecContext
	swrCtx   *astiav.SoftwareResampleContext
	frame    *astiav.Frame

	log *zap.SugaredLogger

	// pcm holds resampled s16le stereo samples awaiting the speaker.
	pcmMu sync.Mutex
	pcm   []byte

	mu     sync.Mutex
	closed bool
}

// NewAudioPlayer prepares decoding for the given audio codec parameters.
func NewAudioPlayer(params *astiav.CodecParameters, log *zap.SugaredLogger) (*AudioPlayer, error) {
	a := &AudioPlayer{
		log: log,
		pcm: make([]byte, 0, 4*audioSampleRate), // about a second
	}

	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		return nil, fmt.Errorf("audio codec not found: %s", params.CodecID())
	}
	a.codecCtx = astiav.AllocCodecContext(codec)
	if a.codecCtx == nil {
		return nil, errors.New("failed to allocate audio codec context")
	}
	if err := params.ToCodecContext(a.codecCtx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to copy audio codec params: %w", err)
	}
	if err := a.codecCtx.Open(codec, nil); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open audio codec: %w", err)
	}

	a.frame = astiav.AllocFrame()
	a.swrCtx = astiav.AllocSoftwareResampleContext()
	if a.swrCtx == nil {
		a.Close()
		return nil, errors.New("failed to allocate resample context")
	}
	return a, nil
}

// Start begins playback. The speaker pulls silence until decoded samples
// arrive, so starting before the first packet is fine.
func (a *AudioPlayer) Start() error {
	var initErr error
	speakerOnce.Do(func() {
		sr := beep.SampleRate(audioSampleRate)
		initErr = speaker.Init(sr, sr.N(50*1000000)) // 50ms buffer
	})
	if initErr != nil {
		return fmt.Errorf("failed to init speaker: %w", initErr)
	}
	speaker.Play(&pcmStreamer{player: a})
	return nil
}

// DecodeLoop drains the audio packet channel until it closes, decoding and
// queueing samples. Meant to run on its own goroutine; packets are owned by
// the loop and freed here.
func (a *AudioPlayer) DecodeLoop(packets <-chan *astiav.Packet) {
	for pkt := range packets {
		if err := a.decodePacket(pkt); err != nil {
			a.log.Debugw("audio packet skipped", "error", err)
		}
		pkt.Free()
	}
}

func (a *AudioPlayer) decodePacket(pkt *astiav.Packet) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return errors.New("audio player closed")
	}
	if err := a.codecCtx.SendPacket(pkt); err != nil {
		return fmt.Errorf("failed to send audio packet: %w", err)
	}

	for {
		if err := a.codecCtx.ReceiveFrame(a.frame); err != nil {
			if errors.Is(err, astiav.ErrEof) || errors.Is(err, astiav.ErrEagain) {
				return nil
			}
			return fmt.Errorf("failed to receive audio frame: %w", err)
		}
		a.queueSamples()
		a.frame.Unref()
	}
}

// queueSamples resamples one decoded frame to s16le stereo at the playback
// rate and appends the bytes to the PCM queue.
func (a *AudioPlayer) queueSamples() {
	out := astiav.AllocFrame()
	defer out.Free()
	out.SetSampleFormat(astiav.SampleFormatS16)
	out.SetSampleRate(audioSampleRate)
	out.SetChannelLayout(astiav.ChannelLayoutStereo)
	out.SetNbSamples(a.frame.NbSamples())

	if err := out.AllocBuffer(0); err != nil {
		return
	}
	if err := a.swrCtx.ConvertFrame(a.frame, out); err != nil {
		// Skip frames that fail to resample instead of erroring.
		return
	}

	byteSize := out.NbSamples() * 2 * 2 // stereo, 2 bytes per sample
	plane, err := out.Data().Bytes(0)
	if err != nil || len(plane) < byteSize {
		return
	}

	a.pcmMu.Lock()
	a.pcm = append(a.pcm, plane[:byteSize]...)
	a.pcmMu.Unlock()
}

// Close stops the speaker and releases decoder resources.
func (a *AudioPlayer) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	speaker.Clear()

	if a.frame != nil {
		a.frame.Free()
		a.frame = nil
	}
	if a.swrCtx != nil {
		a.swrCtx.Free()
		a.swrCtx = nil
	}
	if a.codecCtx != nil {
		a.codecCtx.Free()
		a.codecCtx = nil
	}
}

// pcmStreamer adapts the PCM byte queue to beep's sample interface,
// emitting silence when the queue runs dry so the stream never ends early.
type pcmStreamer struct {
	player *AudioPlayer
}

func (s *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	const bytesPerSample = 4 // s16le stereo

	a := s.player
	a.pcmMu.Lock()
	defer a.pcmMu.Unlock()

	for i := range samples {
		if len(a.pcm) < bytesPerSample {
			for j := i; j < len(samples); j++ {
				samples[j][0] = 0
				samples[j][1] = 0
			}
			break
		}
		left := int16(a.pcm[0]) | int16(a.pcm[1])<<8
		right := int16(a.pcm[2]) | int16(a.pcm[3])<<8
		samples[i][0] = float64(left) / 32767.0
		samples[i][1] = float64(right) / 32767.0
		a.pcm = a.pcm[bytesPerSample:]
	}
	return len(samples), true
}

func (s *pcmStreamer) Err() error { return nil }
