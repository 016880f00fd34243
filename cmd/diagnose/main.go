// Diagnostic tool for inspecting PDS3 products
package main

func main() {
	execute()
}
