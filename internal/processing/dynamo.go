package processing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoRepository persists session documents in a DynamoDB table keyed by
// sessionId. Each write is a single UpdateItem, so individual updates are
// atomic; between fields the contract is last-write-wins.
type DynamoRepository struct {
	client dynamoAPI
	table  string

	now func() time.Time
}

// dynamoAPI is the subset of the DynamoDB client the repository uses.
type dynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// NewDynamoRepository returns a repository over the given table.
func NewDynamoRepository(client dynamoAPI, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table, now: time.Now}
}

func (r *DynamoRepository) key(sessionID string) map[string]ddbtypes.AttributeValue {
	return map[string]ddbtypes.AttributeValue{
		"sessionId": &ddbtypes.AttributeValueMemberS{Value: sessionID},
	}
}

// GetSession implements Repository.
func (r *DynamoRepository) GetSession(ctx context.Context, sessionID string) (*RecordingSession, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            r.key(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrSessionNotFound
	}

	var sess RecordingSession
	if err := attributevalue.UnmarshalMap(out.Item, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// UpdateRecording implements Repository. The non-nil fields are collected
// into one SET expression so the whole update lands atomically.
func (r *DynamoRepository) UpdateRecording(ctx context.Context, sessionID string, update RecordingUpdate) error {
	names := map[string]string{"#updatedAt": "updatedAt"}
	values := map[string]ddbtypes.AttributeValue{
		":updatedAt": r.timestamp(),
	}
	terms := []string{"#updatedAt = :updatedAt"}

	set := func(field string, value ddbtypes.AttributeValue) {
		names["#"+field] = field
		values[":"+field] = value
		terms = append(terms, fmt.Sprintf("#%s = :%s", field, field))
	}

	if update.Stage != nil {
		set("stage", &ddbtypes.AttributeValueMemberS{Value: string(*update.Stage)})
	}
	if update.ClipsCount != nil {
		set("clipsCount", numberValue(*update.ClipsCount))
	}
	if update.BatchCount != nil {
		set("batchCount", numberValue(*update.BatchCount))
	}
	if update.CompletedBatches != nil {
		set("completedBatches", numberValue(*update.CompletedBatches))
	}
	if update.FinalOutputKey != nil {
		set("finalOutputKey", &ddbtypes.AttributeValueMemberS{Value: *update.FinalOutputKey})
	}
	if update.CorrelationID != nil {
		set("correlationId", &ddbtypes.AttributeValueMemberS{Value: *update.CorrelationID})
	}
	if update.ErrorMessage != nil {
		set("errorMessage", &ddbtypes.AttributeValueMemberS{Value: *update.ErrorMessage})
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       r.key(sessionID),
		UpdateExpression:          aws.String("SET " + strings.Join(terms, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}
	return nil
}

// AppendJobReference implements Repository using list_append, so concurrent
// appends never drop an entry.
func (r *DynamoRepository) AppendJobReference(ctx context.Context, sessionID string, ref JobReference) error {
	item, err := attributevalue.MarshalMap(ref)
	if err != nil {
		return fmt.Errorf("encode job reference: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key:       r.key(sessionID),
		UpdateExpression: aws.String(
			"SET #jobReferences = list_append(if_not_exists(#jobReferences, :empty), :ref), #updatedAt = :updatedAt"),
		ExpressionAttributeNames: map[string]string{
			"#jobReferences": "jobReferences",
			"#updatedAt":     "updatedAt",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":empty": &ddbtypes.AttributeValueMemberL{Value: []ddbtypes.AttributeValue{}},
			":ref": &ddbtypes.AttributeValueMemberL{Value: []ddbtypes.AttributeValue{
				&ddbtypes.AttributeValueMemberM{Value: item},
			}},
			":updatedAt": r.timestamp(),
		},
	})
	if err != nil {
		return fmt.Errorf("append job reference for %s: %w", sessionID, err)
	}
	return nil
}

// UpdateJobReference implements Repository. The reference list is a single
// field group; it is re-read and written whole, last-write-wins.
func (r *DynamoRepository) UpdateJobReference(ctx context.Context, sessionID, jobID, status string, progressPercent int) error {
	sess, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	found := false
	for i := range sess.JobReferences {
		if sess.JobReferences[i].JobID == jobID {
			sess.JobReferences[i].Status = status
			sess.JobReferences[i].ProgressPercent = progressPercent
			found = true
		}
	}
	if !found {
		return nil
	}

	list, err := attributevalue.Marshal(sess.JobReferences)
	if err != nil {
		return fmt.Errorf("encode job references: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.table),
		Key:              r.key(sessionID),
		UpdateExpression: aws.String("SET #jobReferences = :refs, #updatedAt = :updatedAt"),
		ExpressionAttributeNames: map[string]string{
			"#jobReferences": "jobReferences",
			"#updatedAt":     "updatedAt",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":refs":      list,
			":updatedAt": r.timestamp(),
		},
	})
	if err != nil {
		return fmt.Errorf("update job reference for %s: %w", sessionID, err)
	}
	return nil
}

// SetCompletedBatches implements Repository with a single-field SET, so
// concurrent completions cannot interleave into a lost update.
func (r *DynamoRepository) SetCompletedBatches(ctx context.Context, sessionID string, n int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.table),
		Key:              r.key(sessionID),
		UpdateExpression: aws.String("SET #completedBatches = :n, #updatedAt = :updatedAt"),
		ExpressionAttributeNames: map[string]string{
			"#completedBatches": "completedBatches",
			"#updatedAt":        "updatedAt",
		},
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":n":         numberValue(n),
			":updatedAt": r.timestamp(),
		},
	})
	if err != nil {
		return fmt.Errorf("set completed batches for %s: %w", sessionID, err)
	}
	return nil
}

func (r *DynamoRepository) timestamp() ddbtypes.AttributeValue {
	return &ddbtypes.AttributeValueMemberS{Value: r.now().UTC().Format(time.RFC3339Nano)}
}

func numberValue(n int) ddbtypes.AttributeValue {
	return &ddbtypes.AttributeValueMemberN{Value: strconv.Itoa(n)}
}
