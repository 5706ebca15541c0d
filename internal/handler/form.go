package handler

import (
	"html/template"
	"net/http"
)

var uploadForm = template.Must(template.New("upload").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Expensify to Excel</title>
</head>
<body>
<h1>Expense report</h1>
<form action="{{.Action}}" method="post" enctype="multipart/form-data">
	<p><label>Name <input type="text" name="name" required></label></p>
	<p><label>Department <input type="text" name="department"></label></p>
	<p><label>Expensify CSV <input type="file" name="file" accept=".csv,text/csv" required></label></p>
	<p><button type="submit">Generate</button></p>
</form>
</body>
</html>
`))

func uploadFormHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		uploadForm.Execute(w, struct{ Action string }{Action: "/"})
	}
}
