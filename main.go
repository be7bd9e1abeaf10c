package main

import (
	"fmt"
	"os"
)

func main() {
	_, ctx := parseCLI()
	if err := ctx.Run(); err != nil {
		fatalf("%s", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal error:")
	fmt.Fprintf(os.Stderr, "\n\t%s\n", fmt.Sprintf(format, args...))
	os.Exit(1)
}
