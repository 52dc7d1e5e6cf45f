/*
Package ngram provides a small toolkit for building, persisting, and sampling
from fixed-order n-gram word models.

A Builder counts co-occurrences of tokens in training text into a frequency
table keyed by the preceding n-1 tokens. The table is serialized to a plain
JSON document with two fields, "vocab" and "model". A Generator loads one or
more of those documents, merging their counts, and produces new text by
weighted random sampling, one token at a time. Contexts never seen during
training fall back to the unigram vocabulary distribution.

Builders and Generators are not safe for concurrent use; callers sharing one
across goroutines must provide their own locking.
*/
package ngram
