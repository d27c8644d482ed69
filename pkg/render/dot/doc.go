// Package dot serializes extracted subgraphs into Graphviz DOT and renders
// them to images.
//
// # Usage
//
//	src := dot.ToDOT(sg, dot.DefaultOptions())
//	svg, err := dot.RenderSVG(ctx, src)
//
// # Labels
//
// Node labels are the node's display title wrapped with [WrapText] at a
// fixed column width (12 by default). [Labeler] memoizes labels per node so
// repeated renders of overlapping subgraphs wrap each title once.
//
// # Orientation
//
// With BottomToTop set (the default) the output carries rankdir=BT, so
// arrows point from prerequisites up to the topics that require them.
//
// # Dependencies
//
// Layout is not computed here. [RenderSVG] and [RenderPNG] hand the DOT
// source to [github.com/goccy/go-graphviz], which runs Graphviz in-process.
package dot
