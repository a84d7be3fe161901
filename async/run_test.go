package async

import (
	"fmt"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestRun(t *testing.T) {
	assert := assert_.New(t)
	a := <-Run(func() int {
		return 123
	})
	assert.Equal(123, a)
}

func TestRunPanic(t *testing.T) {
	assert := assert_.New(t)
	// Recovered inside f, the result still arrives
	a := <-Run(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		panic("boom")
	})
	assert.EqualError(a, "panic: boom")
}

func TestRunAbandoned(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	// Nobody receives from the channel, but the goroutine must still exit
	_ = Run(func() int {
		time.Sleep(10 * time.Millisecond)
		return 1
	})
	time.Sleep(50 * time.Millisecond)
}
