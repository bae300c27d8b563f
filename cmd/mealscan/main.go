package main

import "github.com/mealscan/mealscan/cmd/mealscan/cmd"

func main() {
	cmd.Execute()
}
