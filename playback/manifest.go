package playback

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"
)

// parseLadder decodes a streaming manifest into the discrete quality ladder.
// A master playlist yields one level per variant; a plain media playlist
// yields no discrete levels, leaving only the synthetic Auto entry.
func parseLadder(manifest []byte) ([]Level, error) {
	playlist, listType, err := m3u8.Decode(*bytes.NewBuffer(manifest), true)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	if listType != m3u8.MASTER {
		return nil, nil
	}

	master := playlist.(*m3u8.MasterPlaylist)
	levels := make([]Level, 0, len(master.Variants))
	for i, variant := range master.Variants {
		if variant == nil || variant.Iframe {
			continue
		}

		levels = append(levels, Level{
			Label:      levelLabel(variant.Resolution, variant.Bandwidth),
			Index:      i,
			Bandwidth:  variant.Bandwidth,
			Resolution: variant.Resolution,
			URI:        variant.URI,
		})
	}

	return levels, nil
}

// levelLabel names a ladder entry by vertical resolution when declared,
// falling back to rounded bitrate.
func levelLabel(resolution string, bandwidth uint32) string {
	if _, h, ok := strings.Cut(resolution, "x"); ok {
		if height, err := strconv.Atoi(h); err == nil && height > 0 {
			return fmt.Sprintf("%dp", height)
		}
	}

	switch {
	case bandwidth >= 1_000_000:
		return fmt.Sprintf("%.1f Mbps", float64(bandwidth)/1_000_000)
	case bandwidth > 0:
		return fmt.Sprintf("%d kbps", bandwidth/1_000)
	default:
		return "unknown"
	}
}
