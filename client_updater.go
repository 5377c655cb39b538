package niawave

// Contains the client updater, which publishes JSON-encoded messages
// giving the latest pipeline state.

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/niawave/niawave/internal/unboundedchan"
	zmq "github.com/pebbe/zmq4"
	"github.com/pkg/errors"
)

// ClientUpdate carries the messages to be published on the status port.
type ClientUpdate struct {
	Tag   string
	State interface{}
}

// Status is the state published with tag "STATUS" after every cycle.
type Status struct {
	Connected bool
	Cycles    int
	Failures  int
	LastError string `json:",omitempty"`
	Peak      int
	Bands     [NumBands]int
	Time      time.Time
}

// NewUpdateQueue returns a queue whose In channel feeds RunClientUpdater
// through Out. Senders never wait on a slow publisher.
func NewUpdateQueue() *unboundedchan.Queue[ClientUpdate] {
	return unboundedchan.New[ClientUpdate]()
}

// encodeUpdate returns the two message parts: the tag, then the JSON state.
func encodeUpdate(update ClientUpdate) ([]byte, error) {
	message, err := json.Marshal(update.State)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s update", update.Tag)
	}
	return message, nil
}

// RunClientUpdater forwards any message from its input channel to the ZMQ
// publisher socket on statusport, to publish any information that clients
// need to know. It returns when abort is closed or updates is closed.
func RunClientUpdater(statusport int, updates <-chan ClientUpdate, abort <-chan struct{}) error {
	return runClientUpdater(fmt.Sprintf("tcp://*:%d", statusport), updates, abort)
}

func runClientUpdater(endpoint string, updates <-chan ClientUpdate, abort <-chan struct{}) error {
	pubSocket, err := zmq.NewSocket(zmq.PUB)
	if err != nil {
		return errors.Wrap(err, "create status socket")
	}
	defer pubSocket.Close()
	if err := pubSocket.Bind(endpoint); err != nil {
		return errors.Wrapf(err, "bind status socket to %s", endpoint)
	}

	for {
		select {
		case <-abort:
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			message, err := encodeUpdate(update)
			if err != nil {
				ProblemLogger.Print(err)
				continue
			}
			if update.Tag != "STATUS" {
				UpdateLogger.Printf("%s %s", update.Tag, message)
			}
			if _, err := pubSocket.SendMessage(update.Tag, message); err != nil {
				ProblemLogger.Printf("publish %s update: %v", update.Tag, err)
			}
		}
	}
}
