package main

import "github.com/Mindgaze/Gemini-Marketing-Inteligence/cmd"

func main() {
	cmd.Execute()
}
