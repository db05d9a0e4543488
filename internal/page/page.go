// Package page implements the dashboard page runtime: transient
// notification banners, widget activation and the live clock. It works
// against a Document port so the same code drives the server-held live
// page and test fakes.
package page

// Selectors the page runtime relies on.
const (
	SelectorTooltipTrigger = `[data-bs-toggle="tooltip"]`
	SelectorPopoverTrigger = `[data-bs-toggle="popover"]`
	SelectorContainer      = ".container-fluid"
	SelectorCurrentTime    = ".current-time"
	SelectorAlert          = ".alert"
)

// Document locates elements in a page.
type Document interface {
	// QuerySelector returns the first element matching selector.
	QuerySelector(selector string) (Element, bool)

	// QuerySelectorAll returns every element matching selector in document order.
	QuerySelectorAll(selector string) []Element
}

// Element is a node in a Document.
type Element interface {
	Text() string
	SetText(text string)

	// SetHTML replaces the element's children with markup parsed as a
	// fragment inside the element. Stray end tags cannot close it.
	SetHTML(markup string)

	// PrependHTML parses markup and inserts it as the element's first
	// children. It returns the first inserted element.
	PrependHTML(markup string) (Element, bool)

	// Remove detaches the element. Removing a detached element is a no-op.
	Remove()

	// Attached reports whether the element is still in the document.
	Attached() bool
}

// Toolkit is the third-party widget library that enhances trigger elements.
type Toolkit interface {
	Tooltip(el Element)
	Popover(el Element)
}
