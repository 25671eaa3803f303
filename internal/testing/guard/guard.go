package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FEEDBACKHUB_TEST_MODE") == "" {
			_ = os.Setenv("FEEDBACKHUB_TEST_MODE", "1")
		}
	})
}
