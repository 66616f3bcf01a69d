package main

import (
	"os"

	"chat-relay/internal/app"
)

func main() {
	os.Exit(app.Run())
}
