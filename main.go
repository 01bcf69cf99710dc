/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/rosterhq/playerapi/cmd"

func main() {
	cmd.Execute()
}
