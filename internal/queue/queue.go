// Package queue wraps the SQS-compatible notification queues used for
// capture-bucket notifications and the optional stage notification
// queue (spec.md §6). As with internal/objstore, this is intentionally
// a thin, re-creatable-per-iteration handle (spec.md §5): the low-level
// queue SDK wrapper is out of core scope; this package exists to give
// internal/archive and internal/stage a narrow receive/delete surface.
package queue

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/pkg/errors"
)

// Notification is the decoded payload of one capture-bucket event
// notification, per spec.md §6: "Each notification supplies
// objectstore_name, object_key, message_id."
type Notification struct {
	ObjectstoreName string `json:"objectstore_name"`
	ObjectKey       string `json:"object_key"`
}

// Message is one received queue entry, carrying both the raw receipt
// handle (needed to delete it) and, if decodable, its Notification
// payload.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          string
}

// Decode parses the message body as a Notification. A malformed body
// yields a Notification with an empty ObjectKey, which callers treat
// per spec.md §7 ("Missing or empty object key ... log and drop the
// message").
func (m Message) Decode() Notification {
	var n Notification
	_ = json.Unmarshal([]byte(m.Body), &n)
	return n
}

// Queue is a single SQS queue handle.
type Queue struct {
	client   *sqs.Client
	queueURL string
}

// Open creates a new Queue handle for queueURL.
func Open(ctx context.Context, queueURL, region string) (*Queue, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	return &Queue{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// Receive long-polls for up to maxMessages entries. An empty result
// means the queue is currently drained, per spec.md §4.3 step 3:
// "When the queue is empty, sleep poll_frequency seconds."
func (q *Queue) Receive(ctx context.Context, maxMessages int32) ([]Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     5,
	})
	if err != nil {
		return nil, errors.Wrap(err, "receiving queue messages")
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, fromSDK(m))
	}
	return msgs, nil
}

func fromSDK(m types.Message) Message {
	id := ""
	if m.MessageId != nil {
		id = *m.MessageId
	}
	receipt := ""
	if m.ReceiptHandle != nil {
		receipt = *m.ReceiptHandle
	}
	body := ""
	if m.Body != nil {
		body = *m.Body
	}
	return Message{ID: id, ReceiptHandle: receipt, Body: body}
}

// Delete removes a message by receipt handle. Per spec.md §7, this is
// only called after the message's side effects (copy + arrival row)
// have been durably applied; any earlier failure leaves the message in
// place for redelivery.
func (q *Queue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	return errors.Wrap(err, "deleting queue message")
}

// Send posts a message, used for the optional stage notification queue
// (spec.md §4.4.1 step 3).
func (q *Queue) Send(ctx context.Context, body string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	return errors.Wrap(err, "sending queue message")
}
