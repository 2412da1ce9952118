package main

import (
	pagerbits "github.com/doismellburning/pagerbits/src"
)

func main() {
	pagerbits.PagerDecodeMain()
}
