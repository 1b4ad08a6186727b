package keyboard

import "tickos/internal/task"

// pollBudget bounds how many scancodes one poll consumes before yielding, so a
// burst of typing cannot monopolize the executor.
const pollBudget = 32

// CharSink receives decoded characters one at a time.
type CharSink interface {
	ProcessChar(r rune)
}

type keypressTask struct {
	stream  *ScancodeStream
	decoder Decoder
	sink    CharSink
}

// NewKeypressTask returns the long-lived future that decodes the stream and
// forwards every character to sink. It never completes.
func NewKeypressTask(stream *ScancodeStream, sink CharSink) task.Future {
	return &keypressTask{stream: stream, sink: sink}
}

func (k *keypressTask) Poll(cx *task.Context) task.Poll {
	for i := 0; i < pollBudget; i++ {
		b, p := k.stream.PollNext(cx)
		if p == task.Pending {
			return task.Pending
		}
		key, ok := k.decoder.AddByte(b)
		if !ok {
			continue
		}
		if key.IsRune() {
			k.sink.ProcessChar(key.Rune)
			continue
		}
		log.Debugf("raw key %s", key.Raw)
	}
	cx.Waker().Wake()
	return task.Pending
}
