package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dashgps/pkg/log"
	"dashgps/pkg/track"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
)

type mockToken struct {
	err      error
	timedOut bool
}

func (t *mockToken) Wait() bool { return !t.timedOut }
func (t *mockToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t *mockToken) Done() <-chan struct{} { return nil }
func (t *mockToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type mockClient struct {
	connectToken *mockToken
	publishErr   error
	messages     []message
	disconnected bool
}

func (c *mockClient) Connect() mqtt.Token {
	if c.connectToken != nil {
		return c.connectToken
	}
	return &mockToken{}
}

func (c *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.messages = append(c.messages, message{
		topic:    topic,
		qos:      qos,
		retained: retained,
		payload:  payload.([]byte),
	})
	return &mockToken{err: c.publishErr}
}

func (c *mockClient) Disconnect(uint) { c.disconnected = true }

func newTestMQTT(client *mockClient) *MQTT {
	return &MQTT{
		client: client,
		broker: "tcp://test:1883",
		topic:  "dashcam/gps",
		logger: &log.Recorder{},
	}
}

func testWaypoints() []track.Waypoint {
	return []track.Waypoint{
		{
			Latitude:   59.5,
			Longitude:  18.05,
			Time:       time.Date(2022, 3, 14, 10, 0, 0, 0, time.UTC),
			Source:     "a.mp4",
			SpeedMPS:   1.5,
			BearingDeg: 90,
			Fix:        track.FixType,
			Satellites: track.Satellites,
		},
		{Source: "b.mp4"},
	}
}

func TestMQTTPublish(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		client := &mockClient{}
		require.NoError(t, newTestMQTT(client).Publish(testWaypoints()))

		require.Len(t, client.messages, 2)
		msg := client.messages[0]
		require.Equal(t, "dashcam/gps", msg.topic)
		require.Equal(t, byte(0), msg.qos)
		require.False(t, msg.retained)

		expected := `{"lat":59.5,"lon":18.05,"time":"2022-03-14T10:00:00Z",` +
			`"src":"a.mp4","speed":1.5,"bearing":90,"fix":"2d","sat":3}`
		require.JSONEq(t, expected, string(msg.payload))

		var wp track.Waypoint
		require.NoError(t, json.Unmarshal(client.messages[1].payload, &wp))
		require.Equal(t, "b.mp4", wp.Source)
		require.True(t, client.disconnected)
	})
	t.Run("connectErr", func(t *testing.T) {
		errMock := errors.New("mock")
		client := &mockClient{connectToken: &mockToken{err: errMock}}
		err := newTestMQTT(client).Publish(testWaypoints())
		require.ErrorIs(t, err, errMock)
		require.Empty(t, client.messages)
		require.False(t, client.disconnected)
	})
	t.Run("connectTimeout", func(t *testing.T) {
		client := &mockClient{connectToken: &mockToken{timedOut: true}}
		err := newTestMQTT(client).Publish(testWaypoints())
		require.ErrorIs(t, err, ErrTimeout)
	})
	t.Run("publishErr", func(t *testing.T) {
		errMock := errors.New("mock")
		client := &mockClient{publishErr: errMock}
		err := newTestMQTT(client).Publish(testWaypoints())
		require.ErrorIs(t, err, errMock)
		require.Len(t, client.messages, 1)
		require.True(t, client.disconnected)
	})
}

type mockS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockS3) PutObject(
	_ context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	m.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.body = body
	return &s3.PutObjectOutput{}, m.err
}

func TestS3Upload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.gpx")
	require.NoError(t, os.WriteFile(path, []byte("<gpx/>"), 0o600))

	t.Run("ok", func(t *testing.T) {
		client := &mockS3{}
		u := &S3{client: client, bucket: "b", key: "tracks/track.gpx", logger: &log.Recorder{}}
		require.NoError(t, u.Upload(context.Background(), path))

		require.Equal(t, "b", aws.ToString(client.input.Bucket))
		require.Equal(t, "tracks/track.gpx", aws.ToString(client.input.Key))
		require.Equal(t, "application/gpx+xml", aws.ToString(client.input.ContentType))
		require.Equal(t, int64(6), aws.ToInt64(client.input.ContentLength))
		require.Equal(t, []byte("<gpx/>"), client.body)
	})
	t.Run("putErr", func(t *testing.T) {
		errMock := errors.New("mock")
		u := &S3{client: &mockS3{err: errMock}, bucket: "b", key: "k", logger: &log.Recorder{}}
		require.ErrorIs(t, u.Upload(context.Background(), path), errMock)
	})
	t.Run("missingFile", func(t *testing.T) {
		u := &S3{client: &mockS3{}, bucket: "b", key: "k", logger: &log.Recorder{}}
		err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "nil"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestContentType(t *testing.T) {
	require.Equal(t, "application/gpx+xml", contentType("a.GPX"))
	require.Equal(t, "text/plain", contentType("a.nmea"))
	require.Equal(t, "application/octet-stream", contentType("a"))
}
