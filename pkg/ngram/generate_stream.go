package ngram

import "context"

// Stream steps the Generator in a goroutine and returns a channel of the drawn
// tokens. The channel is closed after maxLength tokens, or when ctx is
// cancelled; a maxLength of zero or less streams until cancellation. Start
// must have been called. The Generator must not be used by anything else
// until the channel is closed.
func (g *Generator) Stream(ctx context.Context, maxLength int) (<-chan string, error) {
	if !g.started {
		return nil, ErrNotStarted
	}

	return streamTokens(ctx, maxLength, g.Step), nil
}

// streamTokens sends tokens from step on the returned channel until maxLength
// were sent, step fails, or ctx is done.
func streamTokens(ctx context.Context, maxLength int, step func() (string, error)) <-chan string {
	tokenChan := make(chan string)

	go func() {
		defer close(tokenChan)

		for generated := 0; maxLength <= 0 || generated < maxLength; generated++ {
			select {
			case <-ctx.Done():
				return
			default:
			}

			next, err := step()
			if err != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case tokenChan <- next:
			}
		}
	}()

	return tokenChan
}
