package main

import "go-brokerage-crm/cmd/crmctl/cmd"

func main() {
	cmd.Execute()
}
