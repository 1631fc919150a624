package queue

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/require"
)

func TestMessageDecodeParsesNotification(t *testing.T) {
	m := Message{Body: `{"objectstore_name":"capture","object_key":"ns/ns#000000001.zip"}`}
	n := m.Decode()
	require.Equal(t, "capture", n.ObjectstoreName)
	require.Equal(t, "ns/ns#000000001.zip", n.ObjectKey)
}

func TestMessageDecodeMalformedBodyYieldsEmptyKey(t *testing.T) {
	m := Message{Body: "not json"}
	n := m.Decode()
	require.Empty(t, n.ObjectKey)
}

func TestFromSDKHandlesNilPointerFields(t *testing.T) {
	m := fromSDK(types.Message{})
	require.Empty(t, m.ID)
	require.Empty(t, m.ReceiptHandle)
	require.Empty(t, m.Body)
}

func TestFromSDKCopiesPointerFields(t *testing.T) {
	m := fromSDK(types.Message{
		MessageId:     aws.String("mid"),
		ReceiptHandle: aws.String("rh"),
		Body:          aws.String(`{"object_key":"x"}`),
	})
	require.Equal(t, "mid", m.ID)
	require.Equal(t, "rh", m.ReceiptHandle)
	require.Equal(t, `{"object_key":"x"}`, m.Body)
}
