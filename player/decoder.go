package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asticode/go-astiav"
	"go.uber.org/zap"
)

// Decoder is the frame-producer collaborator: it demuxes a media file,
// decodes the video stream and scales each frame to RGB24 at the target
// size. Run emits a finite, non-restartable sequence of timestamped frames
// and signals end-of-stream by closing the channel. Audio packets are routed
// untouched to a side channel for the audio player.
type Decoder struct {
	formatCtx *astiav.FormatContext
	codecCtx  *astiav.CodecContext
	swsCtx    *astiav.SoftwareScaleContext
	frame     *astiav.Frame
	rgbFrame  *astiav.Frame

	videoStream *astiav.Stream
	audioStream *astiav.Stream
	videoIdx    int
	audioIdx    int

	srcWidth  int
	srcHeight int
	dstWidth  int
	dstHeight int

	log *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
}

// NewDecoder opens the media at path and prepares decoding of its first
// video stream. The target pixel size depends on the source dimensions, so
// it is supplied as a layout callback invoked once the stream is probed.
func NewDecoder(path string, layout func(srcW, srcH int) (dstW, dstH int), log *zap.SugaredLogger) (*Decoder, error) {
	d := &Decoder{videoIdx: -1, audioIdx: -1, log: log}

	d.formatCtx = astiav.AllocFormatContext()
	if d.formatCtx == nil {
		return nil, errors.New("failed to allocate format context")
	}
	if err := d.formatCtx.OpenInput(path, nil, nil); err != nil {
		d.formatCtx.Free()
		return nil, fmt.Errorf("failed to open media: %w", err)
	}
	if err := d.formatCtx.FindStreamInfo(nil); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to find stream info: %w", err)
	}

	for _, stream := range d.formatCtx.Streams() {
		switch stream.CodecParameters().MediaType() {
		case astiav.MediaTypeVideo:
			if d.videoIdx == -1 {
				d.videoIdx = stream.Index()
				d.videoStream = stream
			}
		case astiav.MediaTypeAudio:
			if d.audioIdx == -1 {
				d.audioIdx = stream.Index()
				d.audioStream = stream
			}
		}
	}
	if d.videoIdx == -1 {
		d.Close()
		return nil, errors.New("no video stream found")
	}

	params := d.videoStream.CodecParameters()
	d.srcWidth = params.Width()
	d.srcHeight = params.Height()
	d.dstWidth, d.dstHeight = layout(d.srcWidth, d.srcHeight)
	if d.dstWidth < 2 || d.dstHeight < 2 {
		d.Close()
		return nil, fmt.Errorf("target size %dx%d too small", d.dstWidth, d.dstHeight)
	}

	codec := astiav.FindDecoder(params.CodecID())
	if codec == nil {
		d.Close()
		return nil, fmt.Errorf("video codec not found: %s", params.CodecID())
	}
	d.codecCtx = astiav.AllocCodecContext(codec)
	if d.codecCtx == nil {
		d.Close()
		return nil, errors.New("failed to allocate video codec context")
	}
	if err := params.ToCodecContext(d.codecCtx); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to copy video codec params: %w", err)
	}
	if err := d.codecCtx.Open(codec, nil); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to open video codec: %w", err)
	}

	var err error
	d.swsCtx, err = astiav.CreateSoftwareScaleContext(
		d.srcWidth, d.srcHeight, d.codecCtx.PixelFormat(),
		d.dstWidth, d.dstHeight, astiav.PixelFormatRgb24,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to create scale context: %w", err)
	}

	d.frame = astiav.AllocFrame()
	d.rgbFrame = astiav.AllocFrame()
	d.rgbFrame.SetWidth(d.dstWidth)
	d.rgbFrame.SetHeight(d.dstHeight)
	d.rgbFrame.SetPixelFormat(astiav.PixelFormatRgb24)
	if err := d.rgbFrame.AllocBuffer(1); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to allocate RGB frame buffer: %w", err)
	}

	return d, nil
}

// SourceSize returns the original video dimensions in pixels.
func (d *Decoder) SourceSize() (int, int) { return d.srcWidth, d.srcHeight }

// HasAudio reports whether the media carries an audio stream.
func (d *Decoder) HasAudio() bool { return d.audioIdx != -1 }

// AudioCodecParameters returns the audio stream parameters, or nil.
func (d *Decoder) AudioCodecParameters() *astiav.CodecParameters {
	if d.audioStream == nil {
		return nil
	}
	return d.audioStream.CodecParameters()
}

// FrameInterval derives the nominal frame duration from the container's
// average frame rate, defaulting to 1/30s when the container does not say.
func (d *Decoder) FrameInterval() time.Duration {
	fr := d.videoStream.AvgFrameRate()
	if fr.Num() <= 0 || fr.Den() <= 0 {
		return time.Second / 30
	}
	return time.Duration(int64(time.Second) * int64(fr.Den()) / int64(fr.Num()))
}

// Run is the producer loop. It reads packets until end-of-stream or
// cancellation, pushing decoded frames into frames and cloned audio packets
// into audio (which may be nil). Both channels are closed on return; channel
// closure is the end-of-stream signal, not an error. When a queue is full
// the send polls briefly so the cancellation flag is observed at sub-frame
// granularity.
func (d *Decoder) Run(frames chan<- Frame, audio chan<- *astiav.Packet, poll time.Duration, cancel *CancelFlag) {
	defer close(frames)
	if audio != nil {
		defer close(audio)
	}

	for !cancel.Cancelled() {
		pkt := astiav.AllocPacket()
		if err := d.formatCtx.ReadFrame(pkt); err != nil {
			pkt.Free()
			if !errors.Is(err, astiav.ErrEof) {
				d.log.Errorw("demux failed", "error", err)
			}
			return
		}

		switch pkt.StreamIndex() {
		case d.videoIdx:
			ok := d.decodeVideo(pkt, frames, poll, cancel)
			pkt.Free()
			if !ok {
				return
			}
		case d.audioIdx:
			if audio == nil {
				pkt.Free()
				continue
			}
			clone := astiav.AllocPacket()
			clone.Ref(pkt)
			pkt.Free()
			if !sendPacket(audio, clone, poll, cancel) {
				clone.Free()
				return
			}
		default:
			pkt.Free()
		}
	}
}

// decodeVideo feeds one packet to the codec and emits every frame it
// produces. Returns false when the pipeline should stop.
func (d *Decoder) decodeVideo(pkt *astiav.Packet, frames chan<- Frame, poll time.Duration, cancel *CancelFlag) bool {
	if err := d.codecCtx.SendPacket(pkt); err != nil {
		d.log.Errorw("video decode failed", "error", err)
		return false
	}

	for {
		if err := d.codecCtx.ReceiveFrame(d.frame); err != nil {
			if errors.Is(err, astiav.ErrEof) || errors.Is(err, astiav.ErrEagain) {
				return true
			}
			d.log.Errorw("video decode failed", "error", err)
			return false
		}

		f, err := d.scaleFrame()
		d.frame.Unref()
		if err != nil {
			d.log.Errorw("frame conversion failed", "error", err)
			return false
		}
		if !sendFrame(frames, f, poll, cancel) {
			return false
		}
	}
}

// scaleFrame converts the decoded frame to RGB24 at the target size and
// copies the pixels out, since the scaler's buffer is reused.
func (d *Decoder) scaleFrame() (Frame, error) {
	if err := d.swsCtx.ScaleFrame(d.frame, d.rgbFrame); err != nil {
		return Frame{}, fmt.Errorf("failed to scale frame: %w", err)
	}

	raw, err := d.rgbFrame.Data().Bytes(1)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to read RGB bytes: %w", err)
	}
	rgb := make([]byte, len(raw))
	copy(rgb, raw)

	tb := d.videoStream.TimeBase()
	pts := time.Duration(float64(d.frame.Pts()) * float64(tb.Num()) / float64(tb.Den()) * float64(time.Second))

	return Frame{RGB: rgb, Width: d.dstWidth, Height: d.dstHeight, PTS: pts}, nil
}

func sendFrame(ch chan<- Frame, f Frame, poll time.Duration, cancel *CancelFlag) bool {
	for {
		select {
		case ch <- f:
			return true
		default:
			if cancel.Cancelled() {
				return false
			}
			time.Sleep(poll)
		}
	}
}

func sendPacket(ch chan<- *astiav.Packet, pkt *astiav.Packet, poll time.Duration, cancel *CancelFlag) bool {
	for {
		select {
		case ch <- pkt:
			return true
		default:
			if cancel.Cancelled() {
				return false
			}
			time.Sleep(poll)
		}
	}
}

// Close releases all FFmpeg resources. Safe to call more than once.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	if d.frame != nil {
		d.frame.Free()
		d.frame = nil
	}
	if d.rgbFrame != nil {
		d.rgbFrame.Free()
		d.rgbFrame = nil
	}
	if d.swsCtx != nil {
		d.swsCtx.Free()
		d.swsCtx = nil
	}
	if d.codecCtx != nil {
		d.codecCtx.Free()
		d.codecCtx = nil
	}
	if d.formatCtx != nil {
		d.formatCtx.CloseInput()
		d.formatCtx.Free()
		d.formatCtx = nil
	}
}
