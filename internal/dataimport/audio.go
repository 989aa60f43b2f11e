package dataimport

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"

	"github.com/giuthas/patkit/internal/models"
)

// ReadWAV decodes a mono WAV file into modality data. Samples are
// scaled to [-1, 1) according to the bit depth and the timevector is
// generated from the sample rate.
func ReadWAV(data []byte) (*models.ModalityData, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("dataimport: not a valid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("dataimport: decode WAV: %w", err)
	}
	if buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("dataimport: expected mono audio, got %d channels", buf.Format.NumChannels)
	}

	scale := float64(int64(1) << (dec.BitDepth - 1))
	rate := float64(buf.Format.SampleRate)

	samples := make([]float64, len(buf.Data))
	timevector := make([]float64, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = float64(s) / scale
		timevector[i] = float64(i) / rate
	}

	md := &models.ModalityData{
		Data:         samples,
		Timevector:   timevector,
		SamplingRate: rate,
	}
	if err := md.Validate(); err != nil {
		return nil, err
	}
	return md, nil
}
