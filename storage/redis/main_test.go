package redis

import (
	"os"
	"testing"

	"github.com/joho/godotenv"
)

// TestMain loads connection settings from the repository .env file if one exists.
func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env")
	os.Exit(m.Run())
}
