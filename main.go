package main

import "github.com/manvithgkacharya/yt-download/cmd"

func main() {
	cmd.Execute()
}
