//go:build !ios && !android && (amd64 || arm64)

package annotai

import (
	"github.com/lomavkin/annotai/avcodec"
	"github.com/lomavkin/annotai/avformat"
	"github.com/lomavkin/annotai/avutil"
)

// StreamInfo describes one stream of a probed input.
type StreamInfo struct {
	Index      int
	Type       MediaType
	CodecID    CodecID
	CodecName  string
	Width      int      // Video only
	Height     int      // Video only
	FrameRate  Rational // Video only - frames per second
	SampleRate int      // Audio only
	Channels   int      // Audio only
	TimeBase   Rational
	BitRate    int64
}

// ProbeResult describes a probed media file.
type ProbeResult struct {
	// Path is the probed input URL/path.
	Path string

	// Format is the selected demuxer short name (e.g. "mov,mp4,m4a,3gp,3g2,mj2").
	Format string

	// LongName is the selected demuxer's long name.
	LongName string

	// Duration is the container duration in seconds.
	Duration float64

	// BitRate is the total stream bit rate in bits per second, 0 if unknown.
	BitRate int64

	Streams  []StreamInfo
	Metadata Metadata
}

// Probe opens path, collects container and stream information, and closes
// it again. Nothing is decoded.
func Probe(path string) (*ProbeResult, error) {
	if err := Init(); err != nil {
		return nil, err
	}

	var ctx avformat.FormatContext
	if err := avformat.OpenInput(&ctx, path, nil, nil); err != nil {
		return nil, err
	}
	defer avformat.CloseInput(&ctx)
	if err := avformat.FindStreamInfo(ctx, nil); err != nil {
		return nil, err
	}

	ifmt := avformat.GetInputFormat(ctx)
	result := &ProbeResult{
		Path:     path,
		Format:   avformat.InputFormatName(ifmt),
		LongName: avformat.InputFormatLongName(ifmt),
		Duration: float64(avformat.GetDuration(ctx)) / float64(avutil.TimeBase),
		BitRate:  avformat.GetBitRate(ctx),
		Metadata: readMetadata(avformat.GetMetadata(ctx)),
	}

	for i := 0; i < avformat.GetNumStreams(ctx); i++ {
		stream := avformat.GetStream(ctx, i)
		par := avformat.GetStreamCodecPar(stream)
		info := StreamInfo{
			Index:    i,
			Type:     avcodec.GetParCodecType(par),
			CodecID:  avcodec.GetParCodecID(par),
			TimeBase: avformat.GetStreamTimeBase(stream),
			BitRate:  avcodec.GetParBitRate(par),
		}
		if codec := avcodec.FindDecoder(info.CodecID); codec != nil {
			info.CodecName = avcodec.GetCodecName(codec)
		} else {
			info.CodecName = info.CodecID.String()
		}
		switch info.Type {
		case MediaTypeVideo:
			info.Width = int(avcodec.GetParWidth(par))
			info.Height = int(avcodec.GetParHeight(par))
			info.FrameRate = avformat.GetStreamAvgFrameRate(stream)
		case MediaTypeAudio:
			info.SampleRate = int(avcodec.GetParSampleRate(par))
			info.Channels = int(avcodec.GetParChannels(par))
		}
		result.Streams = append(result.Streams, info)
	}
	return result, nil
}

// VideoStream returns the first video stream, or nil.
func (r *ProbeResult) VideoStream() *StreamInfo {
	return r.firstOfType(MediaTypeVideo)
}

// AudioStream returns the first audio stream, or nil.
func (r *ProbeResult) AudioStream() *StreamInfo {
	return r.firstOfType(MediaTypeAudio)
}

func (r *ProbeResult) firstOfType(t MediaType) *StreamInfo {
	if r == nil {
		return nil
	}
	for i := range r.Streams {
		if r.Streams[i].Type == t {
			return &r.Streams[i]
		}
	}
	return nil
}
