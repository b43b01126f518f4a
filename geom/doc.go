// Package geom provides page-relative geometry for the page cache.
//
// All rectangles are expressed in the unit square of a page, independent of
// the pixel size the page is rendered at:
//
//	(0,0) ------------ (1,0)
//	  |                  |
//	  |       page       |
//	  |                  |
//	(0,1) ------------ (1,1)
//
// A UnitRect is turned into pixels with Geometry. Pages can be displayed
// rotated by a multiple of 90 degrees; ToRotated and FromRotated convert
// between the canonical (unrotated) page space, where cached tiles live, and
// the rotated space seen by consumers.
package geom
