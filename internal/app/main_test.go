package service_test

import (
	"testing"

	"go.uber.org/goleak"

	"github.com/okian/gamesdesk/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
