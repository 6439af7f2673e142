package main

import "waffle-pos-backend/internal/cli"

func main() {
	cli.Execute()
}
