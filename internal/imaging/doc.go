// Package imaging provides the raster plumbing shared by the capture surface,
// the detector, and the MCP host.
//
// It loads practice images from disk into a bounded cache, parses and blends
// brush colours, locates the ink bounding box of a raster, downscales rasters
// that exceed the processing limit, and encodes rasters as base64 PNG for
// transport. All functions work with standard Go image.Image values and use a
// coordinate system where (0,0) is the top-left corner.
//
// # Thread Safety
//
// Cache is safe for concurrent use. The free functions are stateless and can
// be called concurrently on different images.
//
// # Error Handling
//
// Functions return wrapped errors for unreadable files, undecodable images,
// malformed colour strings, and encoding failures.
package imaging
