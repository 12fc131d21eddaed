// Package terraria provisions the Terraria dedicated server: directory
// layout, the worlds symlink, archive download and unpacking, the generated
// serverconfig.txt, and launching the server process itself.
package terraria
