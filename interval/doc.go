/*Package interval parses the region arguments accepted by bio-faidx and loads
  BED files into per-sequence interval unions.
  Overlapping and touching intervals are merged, so a union lists each covered
  base exactly once.
*/
package interval
