package tui

// Layout constants
const (
	BoardDefaultWidth = 36 // Right pane width when unconfigured
	BoardMinWidth     = 24 // Narrowest usable right pane
	BoardMaxWidth     = 80 // Widest right pane

	// Rows taken by everything except the two panes:
	// header (2) + input (3) + status bar (1) + help bar (1)
	chromeHeight = 7
	// Columns and rows a bordered pane spends on border and padding
	paneFrameWidth  = 4
	paneFrameHeight = 2

	minTranscriptWidth = 20
)

// layout holds the computed pane sizes for one terminal size.
type layout struct {
	width, height int

	transcriptWidth int // outer width of the transcript pane
	boardWidth      int // outer width of the right pane
	paneHeight      int // outer height of both panes
}

// computeLayout splits the terminal between the transcript and the right
// pane. The right pane shrinks before the transcript drops below its minimum.
func computeLayout(width, height, boardWidth int) layout {
	if boardWidth == 0 {
		boardWidth = BoardDefaultWidth
	}
	boardWidth = max(BoardMinWidth, min(boardWidth, BoardMaxWidth))
	if width-boardWidth < minTranscriptWidth {
		boardWidth = max(BoardMinWidth, width-minTranscriptWidth)
	}

	l := layout{
		width:      width,
		height:     height,
		boardWidth: boardWidth,
		paneHeight: max(paneFrameHeight+1, height-chromeHeight),
	}
	l.transcriptWidth = max(minTranscriptWidth, width-boardWidth)
	return l
}

// transcriptInner returns the content size inside the transcript pane.
func (l layout) transcriptInner() (int, int) {
	return max(1, l.transcriptWidth-paneFrameWidth), max(1, l.paneHeight-paneFrameHeight)
}

// boardInner returns the content size inside the right pane.
func (l layout) boardInner() (int, int) {
	return max(1, l.boardWidth-paneFrameWidth), max(1, l.paneHeight-paneFrameHeight)
}
