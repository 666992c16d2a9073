package entropy

import "math"

// PayloadMetrics is the Shannon-entropy result for one frame buffer, plus
// optional retained histogram and per-channel breakdown.
type PayloadMetrics struct {
	FrameSizeBytes int
	FrameEntropy   float64
	Histogram      [256]uint32 // zero value if not retained
	HasHistogram   bool
	PerChannel     map[string]float64 // channel id -> byte entropy of its sub-buffer
}

// ByteEntropy computes the Shannon entropy (in bits) of buf's 256-symbol
// byte distribution. An empty buffer has entropy 0.
func ByteEntropy(buf []byte) float64 {
	if len(buf) == 0 {
		return 0
	}
	var hist [256]uint32
	for _, b := range buf {
		hist[b]++
	}
	return entropyFromHistogram(hist[:], len(buf))
}

func entropyFromHistogram(hist []uint32, total int) float64 {
	if total == 0 {
		return 0
	}
	var h float64
	n := float64(total)
	for _, c := range hist {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}

// PayloadOptions controls histogram retention and per-channel breakdown.
type PayloadOptions struct {
	IncludeHistogram bool
	PerChannelRanges map[string][2]int // channel id -> [start, end) byte offsets into buf
}

// Compute evaluates the frame entropy of buf and, when requested, the
// histogram and per-channel sub-buffer breakdown.
func Compute(buf []byte, opts PayloadOptions) PayloadMetrics {
	var hist [256]uint32
	for _, b := range buf {
		hist[b]++
	}

	out := PayloadMetrics{
		FrameSizeBytes: len(buf),
		FrameEntropy:   entropyFromHistogram(hist[:], len(buf)),
	}
	if opts.IncludeHistogram {
		out.Histogram = hist
		out.HasHistogram = true
	}
	if len(opts.PerChannelRanges) > 0 {
		out.PerChannel = make(map[string]float64, len(opts.PerChannelRanges))
		for ch, rng := range opts.PerChannelRanges {
			start, end := rng[0], rng[1]
			if start < 0 || end > len(buf) || start > end {
				continue
			}
			out.PerChannel[ch] = ByteEntropy(buf[start:end])
		}
	}
	return out
}
