package engine

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
)

// Quality carries the encoding knobs applied to every produced output.
type Quality struct {
	RoleARN         string
	VideoBitrate    int32
	VideoWidth      int32
	VideoHeight     int32
	SegmentLength   int32 // HLS segment length in seconds
	AudioBitrate    int32
	AudioSampleRate int32
}

// InvalidInputError reports a job specification that cannot be built.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid job input: " + e.Reason
}

// PartBaseName returns the base name (no extension) of batch n's intermediate
// output file, e.g. "part-003". Batch numbering is 1-based.
func PartBaseName(n int) string {
	return fmt.Sprintf("part-%03d", n)
}

// BuildHLSJob builds the specification for one adaptive-bitrate HLS job whose
// inputs are concatenated in the given order. It serves both the single-job
// path (inputs are clips) and the final merge (inputs are batch part files).
// destination is an s3:// URI without extension; the engine derives the
// manifest name from its base, so ".../final-video/index" yields index.m3u8.
func BuildHLSJob(inputs []string, destination string, q Quality) (*mediaconvert.CreateJobInput, error) {
	if err := validate(inputs, destination, q); err != nil {
		return nil, err
	}

	return &mediaconvert.CreateJobInput{
		Role: aws.String(q.RoleARN),
		Settings: &types.JobSettings{
			TimecodeConfig: &types.TimecodeConfig{Source: types.TimecodeSourceZerobased},
			Inputs:         buildInputs(inputs),
			OutputGroups: []types.OutputGroup{{
				Name: aws.String("HLS Group"),
				OutputGroupSettings: &types.OutputGroupSettings{
					Type: types.OutputGroupTypeHlsGroupSettings,
					HlsGroupSettings: &types.HlsGroupSettings{
						Destination:      aws.String(destination),
						SegmentLength:    aws.Int32(q.SegmentLength),
						MinSegmentLength: aws.Int32(0),
					},
				},
				Outputs: []types.Output{{
					NameModifier: aws.String(fmt.Sprintf("_%dp", q.VideoHeight)),
					ContainerSettings: &types.ContainerSettings{
						Container:    types.ContainerTypeM3u8,
						M3u8Settings: &types.M3u8Settings{},
					},
					VideoDescription:  videoDescription(q),
					AudioDescriptions: audioDescriptions(q),
				}},
			}},
		},
	}, nil
}

// BuildBatchJob builds the specification for one intermediate batch job.
// The output is a flat MP4 named part-<NNN>.mp4 under destinationPrefix,
// consumed only by the final merge, never played directly.
func BuildBatchJob(inputs []string, batchNumber int, destinationPrefix string, q Quality) (*mediaconvert.CreateJobInput, error) {
	if err := validate(inputs, destinationPrefix, q); err != nil {
		return nil, err
	}
	if batchNumber < 1 {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("batch number %d, want >= 1", batchNumber)}
	}

	return &mediaconvert.CreateJobInput{
		Role: aws.String(q.RoleARN),
		Settings: &types.JobSettings{
			TimecodeConfig: &types.TimecodeConfig{Source: types.TimecodeSourceZerobased},
			Inputs:         buildInputs(inputs),
			OutputGroups: []types.OutputGroup{{
				Name: aws.String("File Group"),
				OutputGroupSettings: &types.OutputGroupSettings{
					Type: types.OutputGroupTypeFileGroupSettings,
					FileGroupSettings: &types.FileGroupSettings{
						Destination: aws.String(destinationPrefix + PartBaseName(batchNumber)),
					},
				},
				Outputs: []types.Output{{
					ContainerSettings: &types.ContainerSettings{
						Container:   types.ContainerTypeMp4,
						Mp4Settings: &types.Mp4Settings{},
					},
					VideoDescription:  videoDescription(q),
					AudioDescriptions: audioDescriptions(q),
				}},
			}},
		},
	}, nil
}

func validate(inputs []string, destination string, q Quality) error {
	if len(inputs) == 0 {
		return &InvalidInputError{Reason: "no input clips"}
	}
	if destination == "" {
		return &InvalidInputError{Reason: "empty output destination"}
	}
	if q.RoleARN == "" {
		return &InvalidInputError{Reason: "missing engine role"}
	}
	return nil
}

// buildInputs maps each file URI to an input descriptor with the default
// audio selector and a zero-based timecode so inputs concatenate cleanly.
func buildInputs(uris []string) []types.Input {
	inputs := make([]types.Input, 0, len(uris))
	for _, uri := range uris {
		inputs = append(inputs, types.Input{
			FileInput: aws.String(uri),
			AudioSelectors: map[string]types.AudioSelector{
				"Audio Selector 1": {DefaultSelection: types.AudioDefaultSelectionDefault},
			},
			VideoSelector:  &types.VideoSelector{},
			TimecodeSource: types.InputTimecodeSourceZerobased,
		})
	}
	return inputs
}

func videoDescription(q Quality) *types.VideoDescription {
	return &types.VideoDescription{
		Width:  aws.Int32(q.VideoWidth),
		Height: aws.Int32(q.VideoHeight),
		CodecSettings: &types.VideoCodecSettings{
			Codec: types.VideoCodecH264,
			H264Settings: &types.H264Settings{
				Bitrate:         aws.Int32(q.VideoBitrate),
				RateControlMode: types.H264RateControlModeCbr,
			},
		},
	}
}

func audioDescriptions(q Quality) []types.AudioDescription {
	return []types.AudioDescription{{
		CodecSettings: &types.AudioCodecSettings{
			Codec: types.AudioCodecAac,
			AacSettings: &types.AacSettings{
				Bitrate:    aws.Int32(q.AudioBitrate),
				CodingMode: types.AacCodingModeCodingMode20,
				SampleRate: aws.Int32(q.AudioSampleRate),
			},
		},
	}}
}
