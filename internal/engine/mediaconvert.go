package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
)

// api is the subset of the MediaConvert client the engine uses.
type api interface {
	DescribeEndpoints(ctx context.Context, params *mediaconvert.DescribeEndpointsInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.DescribeEndpointsOutput, error)
	CreateJob(ctx context.Context, params *mediaconvert.CreateJobInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.CreateJobOutput, error)
	GetJob(ctx context.Context, params *mediaconvert.GetJobInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.GetJobOutput, error)
}

// MediaConvertEngine implements Engine against AWS Elemental MediaConvert.
// MediaConvert requires calls to go to an account-specific endpoint; when no
// endpoint is configured it is discovered once via DescribeEndpoints and the
// resulting client is cached for the life of the engine.
type MediaConvertEngine struct {
	endpoint  string
	newClient func(endpoint string) api

	mu     sync.Mutex
	client api
}

// NewMediaConvertEngine returns an engine using the given AWS config.
// endpoint may be empty, in which case it is discovered on first use.
func NewMediaConvertEngine(cfg aws.Config, endpoint string) *MediaConvertEngine {
	return &MediaConvertEngine{
		endpoint: endpoint,
		newClient: func(endpoint string) api {
			if endpoint == "" {
				return mediaconvert.NewFromConfig(cfg)
			}
			return mediaconvert.NewFromConfig(cfg, func(o *mediaconvert.Options) {
				o.BaseEndpoint = aws.String(endpoint)
			})
		},
	}
}

// jobClient returns the endpoint-bound client, discovering the account
// endpoint on first use when none was configured.
func (e *MediaConvertEngine) jobClient(ctx context.Context) (api, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}

	endpoint := e.endpoint
	if endpoint == "" {
		out, err := e.newClient("").DescribeEndpoints(ctx, &mediaconvert.DescribeEndpointsInput{})
		if err != nil {
			return nil, fmt.Errorf("discover engine endpoint: %w", err)
		}
		if len(out.Endpoints) == 0 || out.Endpoints[0].Url == nil {
			return nil, errors.New("discover engine endpoint: no endpoints returned")
		}
		endpoint = *out.Endpoints[0].Url
	}

	e.client = e.newClient(endpoint)
	return e.client, nil
}

// SubmitJob implements Engine.
func (e *MediaConvertEngine) SubmitJob(ctx context.Context, input *mediaconvert.CreateJobInput) (string, error) {
	client, err := e.jobClient(ctx)
	if err != nil {
		return "", err
	}

	out, err := client.CreateJob(ctx, input)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	if out.Job == nil || out.Job.Id == nil {
		return "", errors.New("create job: response carries no job id")
	}
	return *out.Job.Id, nil
}

// JobStatus implements Engine.
func (e *MediaConvertEngine) JobStatus(ctx context.Context, jobID string) (Status, error) {
	client, err := e.jobClient(ctx)
	if err != nil {
		return Status{}, err
	}

	out, err := client.GetJob(ctx, &mediaconvert.GetJobInput{Id: aws.String(jobID)})
	if err != nil {
		return Status{}, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if out.Job == nil {
		return Status{}, fmt.Errorf("get job %s: response carries no job", jobID)
	}

	status := Status{State: State(out.Job.Status)}
	if out.Job.JobPercentComplete != nil {
		status.ProgressPercent = int(*out.Job.JobPercentComplete)
	}
	if status.State == StateComplete {
		status.ProgressPercent = 100
	}
	return status, nil
}
