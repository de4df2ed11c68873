package bitmap

/*

# Claim bitmap pages

This package provides the primitives for tracking which leaves of a merkle
distribution have been claimed. The claimed state for a distribution is
partitioned into fixed size pages so that concurrent claims only contend when
they land on the same page.

It follows the same style as the rest of the module:

- small, composable functions
- explicit byte layouts
- index arithmetic on byte slices

## Locating a leaf

A page holds PageBitCapacity = 4096 * 8 = 32768 claim bits.

	page   = index / 32768
	offset = index % 32768
	byte   = offset / 8
	bit    = offset % 8

Locate is pure, it never touches storage.

## Bit numbering

Bits are numbered LSB0: bit b of byte B is the mask 1<<b. Leaf 0 of a page is
the least significant bit of bitmap[0], leaf 7 is the most significant bit of
bitmap[0] and leaf 8 is the least significant bit of bitmap[1].

## Page record

Pages are persisted with a fixed little endian layout

	+----------------------+  0
	| epoch address (32)   |
	+----------------------+  32
	| page index u32       |
	+----------------------+  36
	| bump u8 | pad (3)    |
	+----------------------+  40
	| bitmap (4096)        |
	+----------------------+  4136

The epoch address and bump bind the page to exactly one epoch. The pad bytes
are always written as zero and ignored when read.

*/
