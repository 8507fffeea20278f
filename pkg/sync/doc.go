/*
The sync package implements the setups sync algorithm. It decides which setup
files are new or changed, and copies them between the trees of a car
directory.

Each car directory has two trees:
1) Source -- The canonical setups. Imports, extra folders and the other cars
   in a variant group all contribute to it.
2) Destination -- The copy that's read by the simulator. It mirrors Source.
   When driver folders are enabled, it also holds the fan-out folders:
   `Common Setups`, which mirrors the rest of Destination, and
   `Drivers/<name>`, which only ever receives files that it doesn't have yet.

The sync algorithm only deals with files. Empty directories aren't synced,
and nothing is deleted, with two exceptions: the driver folders of drivers
that left the roster, and extra folders that are moved out of Destination.
*/
package sync
