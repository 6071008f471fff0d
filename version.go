package lookoutcv

// Version is the lookoutcv release version.
const Version = "0.1.0"
