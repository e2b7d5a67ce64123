// Command lipstick runs the virtual lipstick viewer.
package main

func main() {
	Execute()
}
