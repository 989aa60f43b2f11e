package mcpserver

// FileFormatContract describes the PATKIT data-directory layout for
// LLM consumers that read or interpret the raw files.
const FileFormatContract = `# PATKIT File Format

A PATKIT data directory holds a hierarchy of Dataset, RecordingSession,
Recording, and Modality entities. Every entity has one human-readable
metadata file; saved modality payloads live in separate npz archives.

## File naming

` + "```" + `
<basename>.<Modality_name?><suffix>
` + "```" + `

- Suffix is ` + "`" + `.patkit_meta` + "`" + ` for metadata and ` + "`" + `.npz` + "`" + ` for data.
- Recording, RecordingSession, and Dataset level files carry their
  type as the marker segment: ` + "`" + `rec1.Recording.patkit_meta` + "`" + `,
  ` + "`" + `day1.RecordingSession.patkit_meta` + "`" + `, ` + "`" + `study.Dataset.patkit_meta` + "`" + `.
- Whitespace in modality names becomes underscores:
  "PD on RawUltrasound" saves as ` + "`" + `rec1.PD_on_RawUltrasound.npz` + "`" + `.

## Metadata files

Metadata is YAML. Every file starts with a shared header:

` + "```" + `yaml
object_type: Recording        # Dataset | RecordingSession | Recording | <modality kind>
name: rec1
format_version: "1.0"
` + "```" + `

The ` + "`" + `format_version` + "`" + ` field selects the parser. Files written by
newer versions than the software understands are rejected rather than
half-read.

A recording metadata file lists its modalities:

` + "```" + `yaml
parameters:
  prompt: call a taxi
  time_of_recording: 2021-02-05T14:07:33Z
  participant_id: speaker01
  basename: rec1
  path: sess1
excluded: false
modalities:
  MonoAudio:
    data_name: rec1.wav
  PD on RawUltrasound:
    data_name: rec1.PD_on_RawUltrasound.npz
    meta_name: rec1.PD_on_RawUltrasound.patkit_meta
    checksum: <sha256 of the npz bytes>
` + "```" + `

Imported modalities (recorded by the original instrument) list only
their source data file; derived modalities (computed by PATKIT) have a
metadata file with parameters and annotations, plus an npz payload.

## npz payloads

An npz archive is a zip of npy members: ` + "`" + `data.npy` + "`" + `,
` + "`" + `timevector.npy` + "`" + `, ` + "`" + `sampling_rate.npy` + "`" + `, and for data with more
than two dimensions a ` + "`" + `shape.npy` + "`" + ` member.

## Rules for consumers

1. Never edit ` + "`" + `format_version` + "`" + `.
2. Paths inside metadata files are relative to the session directory
   and use forward slashes.
3. Annotation times are seconds, ascending, aligned one-to-one with
   their property maps.
4. The ` + "`" + `excluded` + "`" + ` flag marks recordings dropped from analysis;
   their files are kept on disk.
`
