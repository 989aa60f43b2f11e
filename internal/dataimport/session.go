package dataimport

import (
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/giuthas/patkit/internal/models"
	"github.com/giuthas/patkit/internal/storage"
	"github.com/giuthas/patkit/internal/textgrid"
)

const (
	suffixPrompt     = ".txt"
	suffixWAV        = ".wav"
	suffixUltrasound = ".ult"
	suffixTextGrid   = ".TextGrid"
)

// timeOffsetKey names the ultrasound parameter holding the delay of
// the first frame relative to audio start. It is lifted out of the
// parameter map and applied to the modality timevector on load.
const timeOffsetKey = "TimeInSecsOfFirstFrame"

// Importer builds recording sessions from AAA exports on disk.
type Importer struct {
	store  storage.Provider
	logger *slog.Logger
}

// NewImporter creates an importer reading through store.
func NewImporter(store storage.Provider, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: store, logger: logger}
}

// ImportSession scans dir for AAA prompt files and builds a recording
// session with one recording per prompt, sorted by recording time.
// Recordings with missing or unreadable companion files are kept but
// logged and, where the data is unusable, excluded.
func (im *Importer) ImportSession(dir string) (*models.RecordingSession, error) {
	files, err := im.store.List(dir, suffixPrompt)
	if err != nil {
		return nil, fmt.Errorf("dataimport: list %s: %w", dir, err)
	}

	name := path.Base(dir)
	if name == "." || name == "/" {
		name = path.Base(im.store.Root())
	}
	session := models.NewSession(models.SessionMetaData{
		Name:       name,
		Path:       dir,
		DataSource: models.DataSourceAAA,
	})

	for _, f := range files {
		name := path.Base(f.Path)
		// US.txt files are ultrasound parameters, not prompts.
		if strings.HasSuffix(name, "US.txt") {
			continue
		}
		basename := strings.TrimSuffix(name, suffixPrompt)

		rec, err := im.importRecording(dir, basename)
		if err != nil {
			im.logger.Warn("skipping recording", "basename", basename, "error", err)
			continue
		}
		session.AddRecording(rec)
	}

	if len(session.Recordings) == 0 {
		return nil, fmt.Errorf("dataimport: no recordings found in %s", dir)
	}
	sort.Slice(session.Recordings, func(i, j int) bool {
		return session.Recordings[i].Meta.TimeOfRecording.Before(
			session.Recordings[j].Meta.TimeOfRecording)
	})
	return session, nil
}

func (im *Importer) importRecording(dir, basename string) (*models.Recording, error) {
	raw, err := im.store.Read(path.Join(dir, basename+suffixPrompt))
	if err != nil {
		return nil, err
	}
	prompt, err := ParsePrompt(raw)
	if err != nil {
		return nil, err
	}

	rec := models.NewRecording(models.RecordingMetaData{
		Prompt:          prompt.Prompt,
		TimeOfRecording: prompt.TimeOfRecording,
		ParticipantID:   prompt.ParticipantID,
		Basename:        basename,
		Path:            dir,
	})

	im.addMonoAudio(rec, dir, basename)
	im.addRawUltrasound(rec, dir, basename)
	im.addAnnotations(rec, dir, basename)
	return rec, nil
}

// addMonoAudio attaches the recording's WAV track. A missing or broken
// audio file excludes the recording: without audio there is no usable
// time alignment.
func (im *Importer) addMonoAudio(rec *models.Recording, dir, basename string) {
	wavPath := path.Join(dir, basename+suffixWAV)
	raw, err := im.store.Read(wavPath)
	if err != nil {
		im.logger.Warn("audio file missing, excluding recording",
			"recording", rec.Identifier(), "path", wavPath)
		rec.Exclude()
		return
	}
	data, err := ReadWAV(raw)
	if err != nil {
		im.logger.Warn("audio file unreadable, excluding recording",
			"recording", rec.Identifier(), "path", wavPath, "error", err)
		rec.Exclude()
		return
	}

	m := models.NewModality(models.KindMonoAudio, models.ModalityMetaData{}, data)
	m.DataPath = basename + suffixWAV
	_ = rec.AddModality(m, false)
}

// addRawUltrasound attaches the ultrasound modality. The pixel data in
// the .ult file is loaded on demand; here only the parameter file is
// read. A recording without ultrasound parameters is excluded.
func (im *Importer) addRawUltrasound(rec *models.Recording, dir, basename string) {
	metaPath, raw, ok := im.ultrasoundParams(dir, basename)
	if !ok {
		im.logger.Warn("ultrasound parameter file missing, excluding recording",
			"recording", rec.Identifier(), "basename", basename)
		rec.Exclude()
		return
	}
	params, err := ParseUltrasoundParams(raw)
	if err != nil {
		im.logger.Warn("ultrasound parameter file unreadable, excluding recording",
			"recording", rec.Identifier(), "path", metaPath, "error", err)
		rec.Exclude()
		return
	}

	m := models.NewModality(models.KindRawUltrasound,
		models.ModalityMetaData{Parameters: params}, nil)
	m.DataPath = basename + suffixUltrasound
	m.MetaPath = path.Base(metaPath)
	if !im.store.Exists(path.Join(dir, basename+suffixUltrasound)) {
		im.logger.Warn("ultrasound data file missing",
			"recording", rec.Identifier(), "path", basename+suffixUltrasound)
	}
	_ = rec.AddModality(m, false)
}

// ultrasoundParams finds the parameter file for a recording, trying
// the newer "<basename>US.txt" name before the older "<basename>.param".
func (im *Importer) ultrasoundParams(dir, basename string) (string, []byte, bool) {
	for _, candidate := range []string{basename + "US.txt", basename + ".param"} {
		p := path.Join(dir, candidate)
		if raw, err := im.store.Read(p); err == nil {
			return p, raw, true
		}
	}
	return "", nil, false
}

// addAnnotations parses the recording's TextGrid, if one exists, and
// attaches each tier as an annotation on the audio modality.
func (im *Importer) addAnnotations(rec *models.Recording, dir, basename string) {
	gridPath := path.Join(dir, basename+suffixTextGrid)
	raw, err := im.store.Read(gridPath)
	if err != nil {
		return
	}
	grid, err := textgrid.Parse(raw)
	if err != nil {
		im.logger.Warn("TextGrid unreadable",
			"recording", rec.Identifier(), "path", gridPath, "error", err)
		return
	}

	audio, ok := rec.Modality(models.KindMonoAudio)
	if !ok {
		return
	}
	for _, tier := range grid.Tiers {
		a := tier.Annotation()
		if len(a.Times) == 0 {
			continue
		}
		if err := audio.AddAnnotation(tier.Name, a); err != nil {
			im.logger.Warn("invalid annotation tier",
				"recording", rec.Identifier(), "tier", tier.Name, "error", err)
		}
	}
}
