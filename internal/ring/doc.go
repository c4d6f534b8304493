// Package ring implements a consistent hashing ring over node addresses.
// Nodes and keys are placed on a 128-bit circle by their MD5 digest, and a
// key is owned by the first node clockwise from it followed by the next
// distinct nodes in ring order.
package ring
