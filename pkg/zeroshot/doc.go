// Package zeroshot classifies images against candidate text labels with
// a pair of CLIP encoders exported to ONNX. No label-specific training is
// involved: the image and each label are embedded into a shared space and
// ranked by a scaled softmax over their cosine similarities.
//
// Quick start:
//
//	c, err := zeroshot.New(zeroshot.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	res, _ := c.ClassifyFile(ctx, "cat.jpg", "a photo of a cat", "a photo of a dog")
//	fmt.Println(res.Best.Text, res.Best.Probability)
//
// Labels are resolved through a closed vocabulary of pre-tokenized phrases.
// The Classifier is safe for concurrent use. Create once, reuse across
// requests.
package zeroshot
