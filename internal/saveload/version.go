package saveload

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/giuthas/patkit/internal/apperr"
	"github.com/giuthas/patkit/internal/models"
)

// FileVersion is the format version written into every metadata file.
const FileVersion = "1.0"

// legacyVersion is the satkit-era format: the session parameter key
// was "datasource", recordings had no excluded flag or payload
// checksums, modalities carried no annotation block, and datasets had
// no files of their own.
const legacyVersion = "0.9.0"

// decoders map a format version to its parsing rules. Adding support
// for a historical format means adding one entry here.
var sessionDecoders = map[string]func(data []byte) (*sessionMeta, error){
	FileVersion:   decodeSessionCurrent,
	legacyVersion: decodeSessionLegacy,
}

var recordingDecoders = map[string]func(data []byte) (*recordingMeta, error){
	FileVersion:   decodeRecordingCurrent,
	legacyVersion: decodeRecordingLegacy,
}

var modalityDecoders = map[string]func(data []byte) (*modalityMeta, error){
	FileVersion:   decodeModalityCurrent,
	legacyVersion: decodeModalityLegacy,
}

// checkVersion validates a file's format version. Unsupported versions
// fail with a VersionError; the error message distinguishes nothing
// about age because a version we cannot parse is fatal either way.
func checkVersion(path, version string, supported map[string]bool) error {
	if supported[version] {
		return nil
	}
	return &apperr.VersionError{
		Path:      path,
		Version:   version,
		Supported: FileVersion,
	}
}

func supportedSet[T any](decoders map[string]T) map[string]bool {
	out := make(map[string]bool, len(decoders))
	for v := range decoders {
		out[v] = true
	}
	return out
}

// CompareVersions orders two dotted version strings numerically.
// Non-numeric segments compare as zero.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var an, bn int
		if i < len(as) {
			an, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			bn, _ = strconv.Atoi(bs[i])
		}
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
	}
	return 0
}

func decodeSessionMeta(path string, data []byte) (*sessionMeta, error) {
	h, err := peekHeader(data)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(path, h.FormatVersion, supportedSet(sessionDecoders)); err != nil {
		return nil, err
	}
	return sessionDecoders[h.FormatVersion](data)
}

func decodeRecordingMeta(path string, data []byte) (*recordingMeta, error) {
	h, err := peekHeader(data)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(path, h.FormatVersion, supportedSet(recordingDecoders)); err != nil {
		return nil, err
	}
	return recordingDecoders[h.FormatVersion](data)
}

func decodeModalityMeta(path string, data []byte) (*modalityMeta, error) {
	h, err := peekHeader(data)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(path, h.FormatVersion, supportedSet(modalityDecoders)); err != nil {
		return nil, err
	}
	return modalityDecoders[h.FormatVersion](data)
}

func decodeSessionCurrent(data []byte) (*sessionMeta, error) {
	var meta sessionMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("saveload: parse session metadata: %w", err)
	}
	return &meta, nil
}

// decodeSessionLegacy reads the satkit-era session file. The only
// structural difference is the parameter key "datasource".
func decodeSessionLegacy(data []byte) (*sessionMeta, error) {
	var legacy struct {
		ObjectType    string `yaml:"object_type"`
		Name          string `yaml:"name"`
		FormatVersion string `yaml:"format_version"`
		Parameters    struct {
			Path       string `yaml:"path"`
			DataSource string `yaml:"datasource"`
		} `yaml:"parameters"`
		Recordings []string `yaml:"recordings"`
	}
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("saveload: parse legacy session metadata: %w", err)
	}
	return &sessionMeta{
		ObjectType:    legacy.ObjectType,
		Name:          legacy.Name,
		FormatVersion: legacy.FormatVersion,
		Parameters: sessionParams{
			Path:       legacy.Parameters.Path,
			DataSource: legacy.Parameters.DataSource,
		},
		Recordings: legacy.Recordings,
	}, nil
}

func decodeRecordingCurrent(data []byte) (*recordingMeta, error) {
	var meta recordingMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("saveload: parse recording metadata: %w", err)
	}
	return &meta, nil
}

// decodeRecordingLegacy reads the satkit-era recording file, which has
// no excluded flag and no payload checksums in its modality listing.
func decodeRecordingLegacy(data []byte) (*recordingMeta, error) {
	var legacy struct {
		ObjectType    string          `yaml:"object_type"`
		Name          string          `yaml:"name"`
		FormatVersion string          `yaml:"format_version"`
		Parameters    recordingParams `yaml:"parameters"`
		Modalities    map[string]struct {
			DataName string `yaml:"data_name"`
			MetaName string `yaml:"meta_name"`
		} `yaml:"modalities"`
	}
	if err := yaml.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("saveload: parse legacy recording metadata: %w", err)
	}
	meta := &recordingMeta{
		ObjectType:    legacy.ObjectType,
		Name:          legacy.Name,
		FormatVersion: legacy.FormatVersion,
		Parameters:    legacy.Parameters,
		Modalities:    make(map[string]modalityListing, len(legacy.Modalities)),
	}
	for name, listing := range legacy.Modalities {
		meta.Modalities[name] = modalityListing{
			DataName: listing.DataName,
			MetaName: listing.MetaName,
		}
	}
	return meta, nil
}

func decodeModalityCurrent(data []byte) (*modalityMeta, error) {
	var meta modalityMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("saveload: parse modality metadata: %w", err)
	}
	return &meta, nil
}

// decodeModalityLegacy reads the satkit-era modality file: same layout
// as the current one minus the annotations block, so the current
// parser handles it after clearing any annotation leftovers.
func decodeModalityLegacy(data []byte) (*modalityMeta, error) {
	meta, err := decodeModalityCurrent(data)
	if err != nil {
		return nil, err
	}
	meta.Annotations = nil
	return meta, nil
}

// splitModalityParameters separates the parent_name key from the rest
// of a modality's stored parameters.
func splitModalityParameters(params map[string]any) models.ModalityMetaData {
	meta := models.ModalityMetaData{}
	if params == nil {
		return meta
	}
	rest := make(map[string]any, len(params))
	for k, v := range params {
		if k == "parent_name" {
			if s, ok := v.(string); ok {
				meta.ParentName = s
			}
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		meta.Parameters = rest
	}
	return meta
}

// mergeModalityParameters is the inverse of splitModalityParameters.
func mergeModalityParameters(meta models.ModalityMetaData) map[string]any {
	out := make(map[string]any, len(meta.Parameters)+1)
	for k, v := range meta.Parameters {
		out[k] = v
	}
	if meta.ParentName != "" {
		out["parent_name"] = meta.ParentName
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
