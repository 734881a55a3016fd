package events

import (
	"bytes"
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("write", func() {
		It("writes successfully", func() {
			w := newTestWriter()
			kp := NewEventProducer(w, WithOutputTopic("insights"))

			msg := []byte(`{"job_id":"1"}`)
			err := kp.Write(context.TODO(), JobStartedMessageKind, bytes.NewReader(msg))
			Expect(err).To(BeNil())

			msg = []byte(`{"job_id":"2"}`)
			err = kp.Write(context.TODO(), JobCompletedMessageKind, bytes.NewReader(msg))
			Expect(err).To(BeNil())

			Eventually(w.Len, 2*time.Second).Should(Equal(2))

			messages := w.Events()
			Expect(messages[0].Context.GetType()).To(Equal(JobStartedMessageKind))
			Expect(messages[1].Context.GetType()).To(Equal(JobCompletedMessageKind))

			topics := w.Topics()
			Expect(topics[0]).To(Equal("insights"))

			kp.Close()
		})
	})
})

type testwriter struct {
	mu       sync.Mutex
	messages []cloudevents.Event
	topics   []string
}

func newTestWriter() *testwriter {
	return &testwriter{}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, e)
	t.topics = append(t.topics, topic)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	return nil
}

func (t *testwriter) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

func (t *testwriter) Events() []cloudevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]cloudevents.Event, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *testwriter) Topics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.topics))
	copy(out, t.topics)
	return out
}
