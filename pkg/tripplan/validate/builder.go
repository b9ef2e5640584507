package validate

// Builder assembles a Chain fluently. Handlers run in the order they are
// added.
type Builder struct {
	handlers []Handler
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Use appends arbitrary handlers.
func (b *Builder) Use(h ...Handler) *Builder {
	b.handlers = append(b.handlers, h...)
	return b
}

// Sanitize appends the Sanitize handler.
func (b *Builder) Sanitize() *Builder { return b.Use(Sanitize()) }

// Require appends a Required handler for fields.
func (b *Builder) Require(fields ...string) *Builder { return b.Use(Required(fields...)) }

// Dates appends a Dates handler for fields.
func (b *Builder) Dates(fields ...string) *Builder { return b.Use(Dates(fields...)) }

// DateOrder appends a DateOrder handler.
func (b *Builder) DateOrder(start, end string) *Builder { return b.Use(DateOrder(start, end)) }

// NonNegative appends a NonNegative handler for fields.
func (b *Builder) NonNegative(fields ...string) *Builder { return b.Use(NonNegative(fields...)) }

// Positive appends a Positive handler for fields.
func (b *Builder) Positive(fields ...string) *Builder { return b.Use(Positive(fields...)) }

// Email appends an Email handler for field.
func (b *Builder) Email(field string) *Builder { return b.Use(Email(field)) }

// Build returns the assembled chain.
func (b *Builder) Build() *Chain {
	return NewChain(b.handlers...)
}
